// Command server starts the AI code mentor dispatch server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ai "github.com/fairyhunter13/ai-code-mentor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/ai/openrouter"
	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/configstore"
	httpserver "github.com/fairyhunter13/ai-code-mentor/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-code-mentor/internal/app"
	"github.com/fairyhunter13/ai-code-mentor/internal/config"
	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/hintsession"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/resilience"
	"github.com/fairyhunter13/ai-code-mentor/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		slog.Error("policy file load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	routes := usecase.DefaultRoutes()

	// Sliding-window rate limiter with its periodic retention sweep.
	// Precedence: route overrides > policy file > env defaults.
	tabLimits := policy.MergeRateLimits(cfg.TabRateLimits())
	for t, n := range usecase.RateOverrides(routes) {
		tabLimits[t] = n
	}
	limiter := ratelimiter.New(ratelimiter.Config{
		Window:          cfg.RateLimitWindow,
		Retention:       cfg.RateLimitRetention,
		TabLimits:       tabLimits,
		DefaultTabLimit: cfg.RateLimitDefault,
	})
	go limiter.Run(ctx, cfg.RateLimitCleanupInterval)

	// Resilience executor around the outbound AI call.
	baseDelay, maxDelay, jitter := cfg.GetRetryDelays()
	exec := resilience.NewExecutor(resilience.ExecutorConfig{
		Policies:     policy.MergeRetryPolicies(domain.DefaultRetryPolicies(baseDelay, maxDelay)),
		Jitter:       jitter,
		RecordMaxAge: cfg.RetryRecordMaxAge,
		OnRetry: func(cat domain.FailureCategory, _ int) {
			observability.RetryAttemptsTotal.WithLabelValues(string(cat)).Inc()
		},
	})
	go exec.Run(ctx, cfg.RetrySweepInterval)

	sessions := hintsession.New(hintsession.Config{
		MaxLevel:  cfg.SessionMaxLevel,
		TTL:       cfg.SessionTTL,
		PerTabCap: cfg.SessionsPerTab,
	})
	settings := configstore.NewMemory()

	var aicl domain.AIClient
	if cfg.UseMockAI || cfg.OpenRouterAPIKey == "" {
		slog.Info("using mock AI client")
		aicl = ai.NewMock()
	} else {
		aicl = openrouter.New(cfg)
	}

	assist := usecase.NewAssistService(aicl, exec, sessions, settings, usecase.AssistConfig{
		MaxOutputTokens:   cfg.MaxOutputTokens,
		PromptTokenBudget: cfg.PromptTokenBudget,
	})

	dispatcher := usecase.NewDispatcher(usecase.DispatcherConfig{
		Routes:   routes,
		Handlers: assist.Handlers(),
		Middlewares: []usecase.Middleware{
			usecase.NewSecurityScan(),
			usecase.NewRateLimit(limiter, func(scope, requestType string) {
				observability.RateLimitDeniedTotal.WithLabelValues(scope, requestType).Inc()
			}),
		},
		AllowedOrigins: cfg.AllowedOrigins,
		OnDispatch: func(requestType, outcome string) {
			observability.DispatchTotal.WithLabelValues(requestType, outcome).Inc()
		},
	})

	srv := httpserver.NewServer(dispatcher, limiter, sessions, settings, cfg.MaxBodyBytes)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
