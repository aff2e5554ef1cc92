package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/weplace/weplace/internal/tracing"
)

// systemPrompt is the fixed instruction set for the validation model. It
// requires comparison of old against new values, not just inspection of the
// new values in isolation.
const systemPrompt = `You are a data validator for a places-of-interest directory.
You receive the current record of a place and a proposed set of field changes.
Check the proposal for: vandalism or offensive content; names inconsistent
with the stated category; values that are implausible against public-record
expectations for this kind of place. Always compare the old and new values.
Respond with a single JSON object and nothing else, containing exactly two
keys: "valid" (boolean) and "reason" (string).`

// DefaultTimeout bounds the oracle call. The external service is the only
// network-bound step in an update, and a hung call must surface as a
// rejection, not a stuck request.
const DefaultTimeout = 20 * time.Second

// ClientConfig configures the oracle HTTP client.
type ClientConfig struct {
	// Endpoint is the chat-completions URL of an OpenAI-compatible API.
	Endpoint string
	// APIKey is sent as a bearer token.
	APIKey string
	// Model names the generation model to query.
	Model string
	// HTTPClient overrides the default client; used for instrumentation
	// (otelhttp transport) and tests. Nil gets a client with DefaultTimeout.
	HTTPClient *http.Client
}

// Client implements Validator against an OpenAI-compatible chat API.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ Validator = (*Client)(nil)

// NewClient builds a validation client from configuration.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: httpClient,
	}
}

// chatRequest and chatResponse mirror the subset of the chat-completions
// wire format this client touches.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Validate sends the current record and proposed changes to the external
// service and parses its verdict. Every failure mode yields a rejection
// describing the failure: misconfiguration, transport errors, non-2xx
// statuses, unparseable content, missing keys.
func (c *Client) Validate(ctx context.Context, current, proposed map[string]string) Verdict {
	ctx, endSpan := tracing.StartSpan(ctx, "oracle.validate")
	verdict := c.validate(ctx, current, proposed)
	tracing.SetAttributes(ctx, attribute.Bool("oracle.accepted", verdict.Accepted))
	endSpan(nil)
	return verdict
}

func (c *Client) validate(ctx context.Context, current, proposed map[string]string) Verdict {
	if c.endpoint == "" || c.model == "" {
		return Reject("validation service not configured")
	}

	payload, err := json.Marshal(map[string]map[string]string{
		"current_record":   current,
		"proposed_changes": proposed,
	})
	if err != nil {
		return Reject(fmt.Sprintf("marshal validation payload: %v", err))
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return Reject(fmt.Sprintf("marshal chat request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reject(fmt.Sprintf("build validation request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "oracle transport failure", "error", err)
		return Reject(fmt.Sprintf("validation service unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.WarnContext(ctx, "oracle returned error status",
			"status", resp.Status, "body", strings.TrimSpace(string(snippet)))
		return Reject(fmt.Sprintf("validation service error: %s", resp.Status))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reject(fmt.Sprintf("read validation response: %v", err))
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return Reject(fmt.Sprintf("decode validation response: %v", err))
	}
	if len(chat.Choices) == 0 {
		return Reject("validation service returned no choices")
	}

	return ParseVerdict(chat.Choices[0].Message.Content)
}

// ParseVerdict extracts a verdict from model output. Models wrap their JSON
// in prose and code fences often enough that the parser cuts from the first
// '{' to the last '}' before decoding. A response that does not contain a
// JSON object with a boolean "valid" key is a rejection.
func ParseVerdict(content string) Verdict {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return Reject("validation response contained no JSON object")
	}

	var parsed struct {
		Valid  *bool  `json:"valid"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return Reject(fmt.Sprintf("unparseable validation verdict: %v", err))
	}
	if parsed.Valid == nil {
		return Reject("validation verdict missing 'valid' key")
	}

	reason := parsed.Reason
	if reason == "" {
		reason = "no reason given"
	}
	return Verdict{Accepted: *parsed.Valid, Reason: reason}
}
