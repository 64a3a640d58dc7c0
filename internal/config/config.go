// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv          string `env:"APP_ENV" envDefault:"dev"`
	Port            int    `env:"PORT" envDefault:"8080"`
	ServiceName     string `env:"OTEL_SERVICE_NAME" envDefault:"ai-code-mentor"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	// AllowedOrigins is the explicit allow-list checked during request
	// validation. Entries ending in "*" match by prefix.
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://leetcode.com,https://www.hackerrank.com,chrome-extension://*"`
	CORSAllowOrigins string   `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`

	// Sliding-window rate limits (requests per window, tab scope). The
	// global ceiling is always twice the tab ceiling.
	RateLimitWindow           time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitCompletion       int           `env:"RATE_LIMIT_COMPLETION" envDefault:"10"`
	RateLimitExplanation      int           `env:"RATE_LIMIT_EXPLANATION" envDefault:"5"`
	RateLimitOptimization     int           `env:"RATE_LIMIT_OPTIMIZATION" envDefault:"5"`
	RateLimitHint             int           `env:"RATE_LIMIT_HINT" envDefault:"15"`
	RateLimitDefault          int           `env:"RATE_LIMIT_DEFAULT" envDefault:"20"`
	RateLimitRetention        time.Duration `env:"RATE_LIMIT_RETENTION" envDefault:"30m"`
	RateLimitCleanupInterval  time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	HTTPRateLimitPerMin       int           `env:"HTTP_RATE_LIMIT_PER_MIN" envDefault:"120"`

	// Retry configuration for the resilience executor.
	RetryBaseDelay     time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay      time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
	RetryJitter        bool          `env:"RETRY_JITTER" envDefault:"true"`
	RetryRecordMaxAge  time.Duration `env:"RETRY_RECORD_MAX_AGE" envDefault:"10m"`
	RetrySweepInterval time.Duration `env:"RETRY_SWEEP_INTERVAL" envDefault:"5m"`

	// Progressive hint sessions.
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SessionMaxLevel int           `env:"SESSION_MAX_LEVEL" envDefault:"4"`
	SessionsPerTab  int           `env:"SESSIONS_PER_TAB" envDefault:"5"`

	// AI provider (OpenAI-compatible chat completions).
	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	ChatModel         string        `env:"CHAT_MODEL" envDefault:"openai/gpt-4o-mini"`
	ChatTimeout       time.Duration `env:"CHAT_TIMEOUT" envDefault:"60s"`
	MaxOutputTokens   int           `env:"MAX_OUTPUT_TOKENS" envDefault:"1024"`
	PromptTokenBudget int           `env:"PROMPT_TOKEN_BUDGET" envDefault:"6000"`
	UseMockAI         bool          `env:"USE_MOCK_AI" envDefault:"false"`

	// Circuit breaker guarding the provider.
	BreakerMaxFailures int           `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerCooldown    time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`

	// PolicyFile optionally overrides rate limits and retry policies (YAML).
	PolicyFile string `env:"POLICY_FILE"`

	MaxBodyBytes          int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// TabRateLimits returns the per-type tab-scope limit table.
func (c Config) TabRateLimits() map[string]int {
	return map[string]int{
		"completion":   c.RateLimitCompletion,
		"explanation":  c.RateLimitExplanation,
		"optimization": c.RateLimitOptimization,
		"hint":         c.RateLimitHint,
	}
}

// GetRetryDelays returns retry delay knobs appropriate for the current
// environment. Tests use short delays so suites stay fast.
func (c Config) GetRetryDelays() (base, max time.Duration, jitter bool) {
	if c.IsTest() {
		return 10 * time.Millisecond, 100 * time.Millisecond, false
	}
	return c.RetryBaseDelay, c.RetryMaxDelay, c.RetryJitter
}
