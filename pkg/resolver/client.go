package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config wires the resolver's upstream lookups (spec §4.3): a
// MusicBrainz-shaped recording service and an AcoustID-shaped
// fingerprint service, both reached through a single cache-backed HTTP
// client (teacher's pkg/sonoteller/client.go retry shape, §6).
type Config struct {
	MusicBrainzBaseURL string
	AcoustIDBaseURL    string
	AcoustIDClientKey  string
	UserAgent          string
	EnableTextSearch   bool // feature flag, off by default (spec §4.3 step 4)
	Timeout            time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		// MusicBrainz requires an identifying User-Agent; ~1 req/s is a
		// documented contract hint, not enforced here (spec §4.3).
		cfg.UserAgent = "publishctl-resolver/1.0"
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

func (c *Client) Configured() bool { return c.cfg.MusicBrainzBaseURL != "" }

type mbRecordingResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Length    int    `json:"length"` // milliseconds
	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
}

type mbSearchResponse struct {
	Recordings []mbRecordingResponse `json:"recordings"`
}

func (r mbRecordingResponse) artist() string {
	var names []string
	for _, ac := range r.ArtistCredit {
		names = append(names, ac.Name)
	}
	return strings.Join(names, " ")
}

func (r mbRecordingResponse) durationS() int {
	if r.Length <= 0 {
		return 0
	}
	return r.Length / 1000
}

// LookupByMBID fetches GET /recording/{mbid} and reports whether it
// resolved with a 2xx (spec §4.3 step 1).
func (c *Client) LookupByMBID(ctx context.Context, mbid string) (bool, error) {
	_, status, err := c.get(ctx, fmt.Sprintf("/recording/%s", mbid), nil)
	if err != nil {
		return false, err
	}
	return status >= 200 && status < 300, nil
}

// LookupByISRC fetches GET /isrc/{isrc}?inc=recordings+artist-credits
// and returns scoreable candidates (spec §4.3 step 2).
func (c *Client) LookupByISRC(ctx context.Context, isrc string) ([]Candidate, error) {
	body, _, err := c.get(ctx, fmt.Sprintf("/isrc/%s", isrc), url.Values{"inc": {"recordings+artist-credits"}})
	if err != nil {
		return nil, err
	}
	var resp mbSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("resolver: couldn't parse isrc response: %w", err)
	}
	return toCandidates(resp.Recordings), nil
}

// SearchText fetches the fallback text-search endpoint, only called
// when EnableTextSearch is set (spec §4.3 step 4).
func (c *Client) SearchText(ctx context.Context, title, artist string) ([]Candidate, error) {
	query := fmt.Sprintf(`recording:"%s" AND artist:"%s"`, title, artist)
	body, _, err := c.get(ctx, "/recording", url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}
	var resp mbSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("resolver: couldn't parse search response: %w", err)
	}
	return toCandidates(resp.Recordings), nil
}

func toCandidates(recs []mbRecordingResponse) []Candidate {
	out := make([]Candidate, 0, len(recs))
	for _, r := range recs {
		out = append(out, Candidate{MBID: r.ID, Title: r.Title, Artist: r.artist(), DurationS: r.durationS()})
	}
	return out
}

type fingerprintResult struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Recordings []struct {
		ID string `json:"id"`
	} `json:"recordings"`
}

type fingerprintResponse struct {
	Results []fingerprintResult `json:"results"`
}

// LookupFingerprint POSTs to the fingerprint service with
// meta=recordingids+recordings and returns results sorted best-first
// (spec §4.3 step 3).
func (c *Client) LookupFingerprint(ctx context.Context, fingerprint string, durationS int) ([]fingerprintResult, error) {
	form := url.Values{
		"client":      {c.cfg.AcoustIDClientKey},
		"meta":        {"recordingids+recordings"},
		"fingerprint": {fingerprint},
		"duration":    {itoa(durationS)},
	}
	body, _, err := c.post(ctx, "/lookup", form)
	if err != nil {
		return nil, err
	}
	var resp fingerprintResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("resolver: couldn't parse fingerprint response: %w", err)
	}
	results := resp.Results
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	return results, nil
}

var backoff = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	u := strings.TrimRight(c.cfg.MusicBrainzBaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, u, "", nil)
}

func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, int, error) {
	u := strings.TrimRight(c.cfg.AcoustIDBaseURL, "/") + path
	return c.do(ctx, http.MethodPost, u, "application/x-www-form-urlencoded", []byte(form.Encode()))
}

// do retries up to twice on 5xx/503 with the fixed backoff ladder (spec
// §4.3 "HTTP retry: up to 2 retries on 5xx/503 ... starting at 500 ms").
func (c *Client) do(ctx context.Context, method, u, contentType string, body []byte) ([]byte, int, error) {
	maxAttempts := len(backoff) + 1
	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(backoff[attempt-1])
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, 0, ctx.Err()
			case <-t.C:
			}
		}
		respBody, status, err := c.doAttempt(ctx, method, u, contentType, body)
		if err == nil {
			return respBody, status, nil
		}
		lastErr, lastStatus = err, status
		if status != 0 && status < 500 && status != 503 {
			return nil, status, err
		}
	}
	return nil, lastStatus, lastErr
}

func (c *Client) doAttempt(ctx context.Context, method, u, contentType string, body []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("resolver: couldn't create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("resolver: couldn't %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("resolver: couldn't read response body: %w", err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == 503 {
		return nil, resp.StatusCode, fmt.Errorf("resolver: upstream returned %d", resp.StatusCode)
	}
	return respBody, resp.StatusCode, nil
}
