package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-code-mentor/internal/config"
	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

func newClientFor(ts *httptest.Server) *Client {
	return New(config.Config{
		OpenRouterAPIKey:   "test-key",
		OpenRouterBaseURL:  ts.URL,
		ChatModel:          "openai/gpt-4o-mini",
		ChatTimeout:        5 * time.Second,
		BreakerMaxFailures: 100,
		BreakerCooldown:    time.Minute,
	})
}

func TestComplete_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"the answer"}}]}`))
	}))
	defer ts.Close()

	out, err := newClientFor(ts).Complete(context.Background(), "system", "user", 128)
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
}

func TestComplete_NoAPIKey(t *testing.T) {
	c := New(config.Config{})
	_, err := c.Complete(context.Background(), "s", "u", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestComplete_Non2xxBecomesUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "9")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer ts.Close()

	_, err := newClientFor(ts).Complete(context.Background(), "s", "u", 10)
	require.Error(t, err)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
	assert.Equal(t, 9*time.Second, ue.RetryAfter)
}

func TestComplete_EmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	_, err := newClientFor(ts).Complete(context.Background(), "s", "u", 10)
	require.Error(t, err)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 502, ue.Status)
}

func TestComplete_BreakerOpensAfterFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(config.Config{
		OpenRouterAPIKey:   "test-key",
		OpenRouterBaseURL:  ts.URL,
		BreakerMaxFailures: 2,
		BreakerCooldown:    time.Minute,
	})

	for i := 0; i < 2; i++ {
		_, err := c.Complete(context.Background(), "s", "u", 10)
		require.Error(t, err)
	}

	// The breaker is open now; the failure is reported without a call.
	_, err := c.Complete(context.Background(), "s", "u", 10)
	require.Error(t, err)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 503, ue.Status)
	assert.Contains(t, ue.Message, "circuit open")
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
}
