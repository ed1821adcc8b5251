// Package llm wraps the OpenAI-compatible chat-completions endpoint
// used by the study-set pipeline (spec §4.2, §6). Retries follow the
// same fixed backoff ladder as pkg/uploader and the teacher's
// pkg/sonoteller/client.go; 5xx upstream responses surface as 502s with
// the body attached, per spec §5/§7.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/originform/publishctl/pkg/apierr"
)

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Debug       bool
}

type Client struct {
	cfg    Config
	client *openai.Client
}

func New(cfg Config) *Client {
	occ := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		occ.BaseURL = cfg.BaseURL
	}
	return &Client{cfg: cfg, client: openai.NewClientWithConfig(occ)}
}

func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// ModelName returns the configured model, defaulting the same way
// ChatJSON does, for callers that record provenance (e.g. studyset's
// Generator.Model).
func (c *Client) ModelName() string {
	if c.cfg.Model != "" {
		return c.cfg.Model
	}
	return openai.GPT4oMini
}

// rawSchema adapts a pre-built JSON Schema document to go-openai's
// json.Marshaler-shaped ResponseFormat.JSONSchema.Schema field.
type rawSchema json.RawMessage

func (r rawSchema) MarshalJSON() ([]byte, error) { return json.RawMessage(r), nil }

// Result is a structured chat completion: the raw JSON content plus the
// prompt hash used as a cache key / PRNG seed elsewhere in the pipeline
// (spec §4.2, §9 "Prompt hash").
type Result struct {
	Content    string
	PromptHash string
}

// ChatJSON issues one chat-completion call enforcing schemaName/schema
// via response_format.json_schema, and returns the raw assistant JSON
// content plus a 0x-prefixed sha256 prompt hash of system+user content.
func (c *Client) ChatJSON(ctx context.Context, system, user, schemaName string, schema json.RawMessage) (*Result, error) {
	if !c.Configured() {
		return nil, apierr.Upstream("llm_not_configured", "llm client is not configured")
	}
	model := c.cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: rawSchema(schema),
				Strict: true,
			},
		}
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, apierr.Upstream("llm_empty_response", "llm returned no choices")
	}
	return &Result{
		Content:    resp.Choices[0].Message.Content,
		PromptHash: PromptHash(system, user),
	}, nil
}

// PromptHash is the 0x-prefixed sha256 of the concatenated system and
// user prompt text (spec §9 GLOSSARY "Prompt hash").
func PromptHash(system, user string) string {
	sum := sha256.Sum256([]byte(system + user))
	return "0x" + hex.EncodeToString(sum[:])
}

var backoff = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

func (c *Client) do(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
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
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return &resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, apierr.Upstream("llm_upstream_error", fmt.Sprintf("llm request failed: %v", err)).WithDetails(err.Error())
		}
	}
	return nil, apierr.Upstream("llm_upstream_error", fmt.Sprintf("llm request failed after retries: %v", lastErr)).WithDetails(lastErr.Error())
}

func isRetryable(err error) bool {
	if e, ok := err.(*openai.APIError); ok {
		return e.HTTPStatusCode >= 500
	}
	return true
}
