// Package domain holds the core request, session and failure types shared by
// every layer. It depends on nothing above it.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Dispatch rejection sentinels. The HTTP adapter maps each to a status code
// and a stable category string.
var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrUnknownOrigin    = errors.New("origin not allowed")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrUnknownRoute     = errors.New("unknown request type")
	ErrSecurityBlocked  = errors.New("request blocked by security scan")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// RateLimitError is a rate-limit denial carrying the exhausted scope and the
// wait until capacity frees up.
type RateLimitError struct {
	// Scope is "tab" or "global".
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%s scope), retry after %s", e.Scope, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// CategoryForRouterError maps a dispatch rejection sentinel to its stable
// category string for the error envelope.
func CategoryForRouterError(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, ErrUnknownOrigin):
		return "unknown_origin"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrUnknownRoute):
		return "unknown_route"
	case errors.Is(err, ErrSecurityBlocked):
		return "security_blocked"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	}
	return "internal"
}
