// Package openrouter implements the AI client against an OpenAI-compatible
// chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-code-mentor/internal/config"
	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/resilience"
)

// Client implements domain.AIClient. It performs a single outbound call per
// invocation; retry policy lives in the resilience executor, not here. A
// circuit breaker keeps a collapsed provider from being hammered.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
	breaker *resilience.CircuitBreaker
}

// New constructs a Client from configuration.
func New(cfg config.Config) *Client {
	timeout := cfg.ChatTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  cfg.OpenRouterAPIKey,
		baseURL: cfg.OpenRouterBaseURL,
		model:   cfg.ChatModel,
		hc:      &http.Client{Timeout: timeout},
		breaker: resilience.NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerCooldown),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete calls the chat completions endpoint and returns the first
// choice's content. Non-2xx responses surface as *domain.UpstreamError with
// the status and any Retry-After hint.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openrouter api key not configured")
	}
	if err := c.breaker.Allow(); err != nil {
		return "", &domain.UpstreamError{Status: 503, Message: err.Error()}
	}

	start := time.Now()
	content, err := c.doChat(ctx, systemPrompt, userPrompt, maxTokens)
	observability.AIRequestDuration.WithLabelValues("openrouter").Observe(time.Since(start).Seconds())
	c.breaker.Record(err)
	return content, err
}

func (c *Client) doChat(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("op=openrouter.Complete: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=openrouter.Complete: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		// Transport-level failure; the executor classifies by message.
		return "", fmt.Errorf("op=openrouter.Complete: network: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := readSnippet(resp.Body, 512)
		slog.Warn("openrouter non-2xx response",
			slog.String("request_id", observability.RequestIDFromContext(ctx)),
			slog.Int("status", resp.StatusCode),
			slog.String("body", snippet))
		return "", &domain.UpstreamError{
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    snippet,
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("op=openrouter.Complete: decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", &domain.UpstreamError{Status: 502, Message: "empty choices in provider response"}
	}
	return out.Choices[0].Message.Content, nil
}

// parseRetryAfter handles the delta-seconds form; the HTTP-date form is rare
// from these providers and falls back to zero.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// readSnippet reads up to n bytes from r for log/error context.
func readSnippet(r io.Reader, n int64) string {
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return string(b)
}
