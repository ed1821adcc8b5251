// Package uploader is the client for the append-only content store
// described in spec §6: multipart POST /upload stages bytes and returns
// an opaque id, POST /post/{id} anchors that id permanently, and
// GET /{id} is the public gateway. The wire shape is bespoke (not the
// S3 REST API — see DESIGN.md), so the client is a hand-rolled
// net/http client in the retry/backoff style of the teacher's
// pkg/sonoteller/client.go and pkg/filestore/s3/s3.go.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Tag is a single {key, value} annotation attached to a staged upload.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Config struct {
	// BaseURL of the uploader service, e.g. "https://upload.example.com".
	BaseURL string
	// GatewayBaseURL serves public reads, e.g. "https://gateway.example.com".
	GatewayBaseURL string
	Timeout        time.Duration
	Debug          bool
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

// ErrNotConfigured is returned by Stage and Post when BaseURL is empty.
var ErrNotConfigured = fmt.Errorf("uploader: not configured")

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// Staged is what the uploader hands back after a successful stage.
type Staged struct {
	ID         string
	GatewayURL string
	Payload    []byte
}

// Stage uploads content to POST /upload and returns its assigned id and
// public gateway URL.
func (c *Client) Stage(ctx context.Context, filename, contentType string, body []byte, tags []Tag) (*Staged, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("uploader: couldn't create form file: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return nil, fmt.Errorf("uploader: couldn't write form file: %w", err)
	}
	if err := w.WriteField("content_type", contentType); err != nil {
		return nil, fmt.Errorf("uploader: couldn't write content_type field: %w", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("uploader: couldn't marshal tags: %w", err)
	}
	if err := w.WriteField("tags", string(tagsJSON)); err != nil {
		return nil, fmt.Errorf("uploader: couldn't write tags field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("uploader: couldn't close multipart writer: %w", err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/upload", w.FormDataContentType(), buf.Bytes(), &out); err != nil {
		return nil, err
	}
	return &Staged{
		ID:         out.ID,
		GatewayURL: c.GatewayURL(out.ID),
		Payload:    body,
	}, nil
}

// Post anchors a previously staged id to the append-only backend.
func (c *Client) Post(ctx context.Context, id string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, http.MethodPost, "/post/"+id, "", nil, nil)
	return err
}

func (c *Client) GatewayURL(id string) string {
	base := strings.TrimRight(c.cfg.GatewayBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return fmt.Sprintf("%s/%s", base, id)
}

// Probe reports whether a gateway URL currently resolves (2xx), the
// availability check the anchor step performs after a successful post.
func (c *Client) Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Download fetches gateway bytes, surfacing the status code via
// *StatusError so callers can distinguish "unavailable" (502, soft
// retry) from other failures.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("uploader: couldn't create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploader: couldn't download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Status: resp.StatusCode, Body: string(b)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("uploader: couldn't read body of %s: %w", url, err)
	}
	return b, nil
}

// StatusError carries the HTTP status code of a failed upstream call.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("uploader: upstream returned %d: %s", e.Status, e.Body)
}

// backoff is the fixed retry ladder of this client and pkg/llm (500ms,
// 1s, 2s: up to three retries), mirroring the teacher's fixed
// []time.Duration backoff tables. pkg/resolver uses a shorter 500ms, 1s
// ladder.
var backoff = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out interface{}) ([]byte, error) {
	maxAttempts := len(backoff) + 1
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(backoff[attempt-1])
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		b, status, err := c.doAttempt(ctx, method, path, contentType, body, out)
		if err == nil {
			return b, nil
		}
		lastErr = err
		if status != 0 && status < 500 {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doAttempt(ctx context.Context, method, path, contentType string, body []byte, out interface{}) ([]byte, int, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("uploader: couldn't create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("uploader: couldn't %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("uploader: couldn't read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > 256 {
			msg = msg[:256] + "..."
		}
		return nil, resp.StatusCode, &StatusError{Status: resp.StatusCode, Body: msg}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("uploader: couldn't unmarshal response: %w", err)
		}
	}
	return respBody, resp.StatusCode, nil
}
