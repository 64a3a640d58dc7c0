package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/fairyhunter13/ai-code-mentor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/configstore"
	httpserver "github.com/fairyhunter13/ai-code-mentor/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-code-mentor/internal/app"
	"github.com/fairyhunter13/ai-code-mentor/internal/config"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/hintsession"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/resilience"
	"github.com/fairyhunter13/ai-code-mentor/internal/usecase"
)

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, app.ParseOrigins(""))
	assert.Equal(t, []string{"*"}, app.ParseOrigins("*"))
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, app.ParseOrigins("https://a.com, https://b.com"))
	assert.Equal(t, []string{"https://a.com"}, app.ParseOrigins(" https://a.com ,, "))
}

func buildTestHandler(t *testing.T) http.Handler {
	t.Helper()
	observability.InitMetrics()

	cfg := config.Config{
		HTTPRateLimitPerMin: 1000,
		HTTPWriteTimeout:    30 * time.Second,
		CORSAllowOrigins:    "*",
	}

	limiter := ratelimiter.New(ratelimiter.Config{})
	exec := resilience.NewExecutor(resilience.ExecutorConfig{
		Sleep: func(context.Context, time.Duration) error { return nil },
	})
	sessions := hintsession.New(hintsession.Config{})
	settings := configstore.NewMemory()
	assist := usecase.NewAssistService(ai.NewMock(), exec, sessions, settings, usecase.AssistConfig{})
	dispatcher := usecase.NewDispatcher(usecase.DispatcherConfig{
		Routes:   usecase.DefaultRoutes(),
		Handlers: assist.Handlers(),
	})
	srv := httpserver.NewServer(dispatcher, limiter, sessions, settings, 1<<20)
	return app.BuildRouter(cfg, srv)
}

func TestBuildRouter_Endpoints(t *testing.T) {
	h := buildTestHandler(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/v1/dispatch", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, r)
		assert.Equal(t, tc.want, rw.Code, "%s %s", tc.method, tc.path)
	}
}

func TestBuildRouter_DispatchRoundTrip(t *testing.T) {
	h := buildTestHandler(t)

	body := `{"type":"chat","tabId":"tab-1","payload":{"message":"hello"}}`
	r := httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, r)

	require.Equal(t, http.StatusOK, rw.Code)
	assert.NotEmpty(t, rw.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rw.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rw.Body.String(), "result")
}
