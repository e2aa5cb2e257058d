// Package gemini is a minimal client for the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-3-flash-preview"
)

var (
	ErrMissingAPIKey = errors.New("gemini: API key not configured")
	// ErrEmptyResponse is returned when the call succeeds but carries no text.
	ErrEmptyResponse = errors.New("gemini: empty response")
)

// APIError is a non-200 answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini: HTTP %d %s: %s", e.StatusCode, e.Status, e.Message)
}

var tracer = otel.Tracer("github.com/underskin/storefront/internal/gemini")

// Client calls models/{model}:generateContent.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// GenerateContent sends one user prompt with a system instruction and
// returns the first candidate's text. It never retries.
func (c *Client) GenerateContent(ctx context.Context, systemInstruction, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "gemini.generate_content", trace.WithAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", c.model),
		attribute.Int("ai.prompt_length", len(prompt)),
	))
	defer span.End()

	text, err := c.generate(ctx, systemInstruction, prompt, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("gemini request failed", "model", c.model, "error", err)
		return "", err
	}
	span.SetAttributes(attribute.Int("ai.response_length", len(text)))
	return text, nil
}

func (c *Client) generate(ctx context.Context, systemInstruction, prompt string, span trace.Span) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body := generateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
	}
	if systemInstruction != "" {
		body.SystemInstruction = &SystemInstruction{Parts: []Part{{Text: systemInstruction}}}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil {
			apiErr.Status = er.Error.Status
			apiErr.Message = er.Error.Message
		}
		return "", apiErr
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("gemini: parse response: %w", err)
	}
	span.SetAttributes(
		attribute.Int("ai.prompt_tokens", gr.UsageMetadata.PromptTokenCount),
		attribute.Int("ai.completion_tokens", gr.UsageMetadata.CandidatesTokenCount),
	)

	if len(gr.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("gemini response",
		"model", c.model,
		"total_tokens", gr.UsageMetadata.TotalTokenCount,
		"duration", time.Since(start),
	)
	return sb.String(), nil
}
