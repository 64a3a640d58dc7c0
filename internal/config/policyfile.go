package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// Policy is the optional externally supplied override table for per-type
// rate limits and per-category retry policies.
type Policy struct {
	// RateLimits maps request type to tab-scope requests per window.
	RateLimits map[string]int `yaml:"rate_limits"`
	// Retry maps failure category to retry overrides. Absent fields keep
	// the built-in default.
	Retry map[string]RetryOverride `yaml:"retry"`
}

// RetryOverride overrides parts of one category's retry policy.
type RetryOverride struct {
	MaxRetries *int      `yaml:"max_retries"`
	BaseDelay  *Duration `yaml:"base_delay"`
	MaxDelay   *Duration `yaml:"max_delay"`
}

// Duration parses YAML scalars like "2s" with time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(v)
	return nil
}

// LoadPolicy reads and parses a YAML policy file. An empty path yields an
// empty policy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return Policy{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("op=config.LoadPolicy: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("op=config.LoadPolicy: parse %s: %w", path, err)
	}
	return p, nil
}

// MergeRetryPolicies applies per-category retry overrides on top of the
// built-in policy table. Unknown category names are ignored.
func (p Policy) MergeRetryPolicies(base map[domain.FailureCategory]domain.RetryPolicy) map[domain.FailureCategory]domain.RetryPolicy {
	out := make(map[domain.FailureCategory]domain.RetryPolicy, len(base))
	for k, v := range base {
		out[k] = v
	}
	for name, ov := range p.Retry {
		cat := domain.FailureCategory(name)
		pol, ok := out[cat]
		if !ok {
			continue
		}
		if ov.MaxRetries != nil && *ov.MaxRetries >= 0 {
			pol.MaxRetries = *ov.MaxRetries
		}
		if ov.BaseDelay != nil && *ov.BaseDelay > 0 {
			pol.BaseDelay = time.Duration(*ov.BaseDelay)
		}
		if ov.MaxDelay != nil && *ov.MaxDelay > 0 {
			pol.MaxDelay = time.Duration(*ov.MaxDelay)
		}
		out[cat] = pol
	}
	return out
}

// MergeRateLimits applies policy overrides on top of the config table.
func (p Policy) MergeRateLimits(base map[string]int) map[string]int {
	out := make(map[string]int, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range p.RateLimits {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}
