package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/ratelimiter"
)

// SecurityScanMiddleware blocks requests whose serialized payload contains
// known dangerous substrings (script-injection and inline-eval markers).
type SecurityScanMiddleware struct {
	markers []string
}

// NewSecurityScan returns the security middleware with the default marker
// set.
func NewSecurityScan() *SecurityScanMiddleware {
	return &SecurityScanMiddleware{
		markers: []string{
			"<script",
			"</script",
			"javascript:",
			"eval(",
			"new function(",
			"onerror=",
			"onload=",
			"document.cookie",
		},
	}
}

// Name implements Middleware.
func (m *SecurityScanMiddleware) Name() string { return "security-scan" }

// Check implements Middleware. The payload is decoded and re-encoded without
// HTML escaping so markers match literally and \uXXXX escapes cannot hide
// them.
func (m *SecurityScanMiddleware) Check(_ context.Context, req *domain.Request) error {
	var payload any
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return fmt.Errorf("%w: unserializable request", domain.ErrSecurityBlocked)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Type    string `json:"type"`
		Origin  string `json:"origin"`
		TabID   string `json:"tabId"`
		Payload any    `json:"payload"`
	}{req.Type, req.Origin, req.TabID, payload}); err != nil {
		return fmt.Errorf("%w: unserializable request", domain.ErrSecurityBlocked)
	}

	haystack := strings.ToLower(buf.String())
	for _, marker := range m.markers {
		if strings.Contains(haystack, marker) {
			return fmt.Errorf("%w: dangerous content %q", domain.ErrSecurityBlocked, marker)
		}
	}
	return nil
}

// RateLimitMiddleware delegates to the sliding-window limiter and blocks
// with the limiter's retry-after when capacity is exhausted.
type RateLimitMiddleware struct {
	limiter  ratelimiter.Limiter
	onDenied func(scope, requestType string)
}

// NewRateLimit wraps a limiter as a dispatch middleware. onDenied is invoked
// on every denial (metrics hook); nil is allowed.
func NewRateLimit(l ratelimiter.Limiter, onDenied func(scope, requestType string)) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: l, onDenied: onDenied}
}

// Name implements Middleware.
func (m *RateLimitMiddleware) Name() string { return "rate-limit" }

// Check implements Middleware.
func (m *RateLimitMiddleware) Check(_ context.Context, req *domain.Request) error {
	d := m.limiter.Allow(req.Type, req.TabID)
	if d.Allowed {
		return nil
	}
	if m.onDenied != nil {
		m.onDenied(d.Scope, labelType(req.Type))
	}
	return &domain.RateLimitError{Scope: d.Scope, RetryAfter: d.RetryAfter}
}
