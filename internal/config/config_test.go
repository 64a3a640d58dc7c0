package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 10, cfg.RateLimitCompletion)
	assert.Equal(t, 5, cfg.RateLimitExplanation)
	assert.Equal(t, 5, cfg.RateLimitOptimization)
	assert.Equal(t, 15, cfg.RateLimitHint)
	assert.Equal(t, 20, cfg.RateLimitDefault)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.SessionMaxLevel)
	assert.Equal(t, 5, cfg.SessionsPerTab)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.RetryMaxDelay)
	assert.Contains(t, cfg.AllowedOrigins, "https://leetcode.com")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_COMPLETION", "3")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RateLimitCompletion)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.IsProd())
	assert.False(t, cfg.IsDev())
}

func TestTabRateLimits(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	limits := cfg.TabRateLimits()
	assert.Equal(t, 10, limits["completion"])
	assert.Equal(t, 15, limits["hint"])
}

func TestGetRetryDelays_TestEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := Load()
	require.NoError(t, err)

	base, maxDelay, jitter := cfg.GetRetryDelays()
	assert.Equal(t, 10*time.Millisecond, base)
	assert.Equal(t, 100*time.Millisecond, maxDelay)
	assert.False(t, jitter)
}

func TestLoadPolicy_Empty(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Empty(t, p.RateLimits)
}

func TestLoadPolicy_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rate_limits:
  completion: 25
  hint: 30
retry:
  network:
    max_retries: 5
    base_delay: 2s
`), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	merged := p.MergeRateLimits(map[string]int{"completion": 10, "explanation": 5})
	assert.Equal(t, 25, merged["completion"])
	assert.Equal(t, 30, merged["hint"])
	assert.Equal(t, 5, merged["explanation"])

	pols := p.MergeRetryPolicies(domain.DefaultRetryPolicies(time.Second, 30*time.Second))
	assert.Equal(t, 5, pols[domain.CategoryNetwork].MaxRetries)
	assert.Equal(t, 2*time.Second, pols[domain.CategoryNetwork].BaseDelay)
	// Untouched categories keep their defaults.
	assert.Equal(t, 2, pols[domain.CategoryTimeout].MaxRetries)
	assert.Equal(t, 0, pols[domain.CategoryAuthentication].MaxRetries)
}

func TestLoadPolicy_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limits: [not a map"), 0o600))
	_, err := LoadPolicy(path)
	assert.Error(t, err)
}

func TestMergeRetryPolicies_UnknownCategoryIgnored(t *testing.T) {
	p := Policy{Retry: map[string]RetryOverride{"made_up": {}}}
	pols := p.MergeRetryPolicies(domain.DefaultRetryPolicies(time.Second, 30*time.Second))
	assert.Len(t, pols, 9)
}
