// Package gemini is the outbound boundary to the Generative Language
// API. It sends one generateContent request per alignment and extracts
// the response text defensively: providers expose the payload through
// more than one shape, so extraction tries a prioritized list of
// accessors rather than trusting a single path.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subtitle-matcher/internal/prompt"
)

// ErrMissingAPIKey is returned when a client is built without a credential.
var ErrMissingAPIKey = errors.New("gemini: missing api key")

// ErrEmptyResponse is returned when no accessor path yields text.
var ErrEmptyResponse = errors.New("gemini: no text in response")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 400
)

// GenerationConfig carries the fixed sampling parameters sent with
// every request. Values mirror the REST v1beta field names.
type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	CandidateCount   int     `json:"candidateCount"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

// DefaultGenerationConfig returns the low-temperature plain-text
// configuration used for subtitle alignment.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:      0.2,
		TopP:             0.9,
		CandidateCount:   1,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "text/plain",
	}
}

// Config describes one client instance. APIKey is required; the
// remaining fields have working defaults.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// TransportError reports a failed call to the API: either an HTTP
// error status (Status > 0) or a network-level failure (wrapped Err).
type TransportError struct {
	Status int
	Body   string
	Err    error
}

// Error formats the upstream failure.
func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gemini upstream %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("gemini request failed: %v", e.Err)
}

// Unwrap exposes the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client performs generateContent calls against one model.
type Client struct {
	hc     *http.Client
	apiKey string
	model  string
	url    string
	genCfg GenerationConfig
}

// New builds a client. The credential must be supplied explicitly;
// the client never reads the environment.
func New(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		hc:     &http.Client{Timeout: timeout},
		apiKey: key,
		model:  model,
		url:    base + "/v1beta/models/" + url.PathEscape(model) + ":generateContent",
		genCfg: DefaultGenerationConfig(),
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Request/response wire shapes (minimal fields).
type genPart struct {
	Text string `json:"text"`
}
type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}
type genRequest struct {
	Contents         []genContent     `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}
type genResponse struct {
	// Some compatible endpoints return the payload as a flat field.
	Text       string `json:"text"`
	Candidates []struct {
		Content struct {
			Parts []genPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// textAccessors are tried in order until one yields non-empty text.
var textAccessors = []func(*genResponse) string{
	func(r *genResponse) string { return r.Text },
	func(r *genResponse) string {
		if len(r.Candidates) == 0 {
			return ""
		}
		var b strings.Builder
		for _, part := range r.Candidates[0].Content.Parts {
			b.WriteString(part.Text)
		}
		return b.String()
	},
}

// Generate sends one prompt and returns the raw response text.
func (c *Client) Generate(ctx context.Context, promptText string) (string, error) {
	body, err := json.Marshal(&genRequest{
		Contents:         []genContent{{Role: "user", Parts: []genPart{{Text: promptText}}}},
		GenerationConfig: c.genCfg,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"?key="+url.QueryEscape(c.apiKey), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &TransportError{
			Status: resp.StatusCode,
			Body:   truncate(c.redact(string(slurp)), maxErrorBody),
		}
	}

	var gr genResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}

	return extractText(&gr)
}

// Ping verifies connectivity with the trivial test prompt.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Generate(ctx, prompt.TestPrompt())
	return err
}

// extractText applies the prioritized accessor list to a decoded
// response and fails with ErrEmptyResponse if none yields text.
func extractText(r *genResponse) (string, error) {
	for _, accessor := range textAccessors {
		if text := accessor(r); strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", ErrEmptyResponse
}

// redact removes the credential from upstream error bodies.
func (c *Client) redact(s string) string {
	return strings.ReplaceAll(s, c.apiKey, "[REDACTED]")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
