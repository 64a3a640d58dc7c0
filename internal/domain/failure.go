package domain

import (
	"fmt"
	"time"
)

// FailureCategory buckets heterogeneous upstream failures into a bounded
// taxonomy. Every category carries a fixed retry policy.
type FailureCategory string

const (
	CategoryNetwork        FailureCategory = "network"
	CategoryAuthentication FailureCategory = "authentication"
	CategoryRateLimited    FailureCategory = "rate_limited"
	CategoryQuotaExceeded  FailureCategory = "quota_exceeded"
	CategoryTimeout        FailureCategory = "timeout"
	CategoryValidation     FailureCategory = "validation"
	CategoryUpstreamServer FailureCategory = "upstream_server_error"
	CategoryConfiguration  FailureCategory = "configuration"
	CategoryUnknown        FailureCategory = "unknown"
)

// Classification is the outcome of classifying one failure.
type Classification struct {
	Category FailureCategory
	// StatusCode is the upstream HTTP status when one was observed.
	StatusCode int
	// RetryAfter carries the server's retry hint, when given.
	RetryAfter time.Duration
}

// RetryPolicy bounds the retry loop for one failure category.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Retryable reports whether the policy permits any retry at all.
func (p RetryPolicy) Retryable() bool { return p.MaxRetries > 0 }

// DefaultRetryPolicies returns the built-in per-category policy table.
// Transient categories get a budget; deterministic failures get none.
// Zero delay arguments fall back to 1s/30s.
func DefaultRetryPolicies(baseDelay, maxDelay time.Duration) map[FailureCategory]RetryPolicy {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	pol := func(n int) RetryPolicy {
		return RetryPolicy{MaxRetries: n, BaseDelay: baseDelay, MaxDelay: maxDelay}
	}
	return map[FailureCategory]RetryPolicy{
		CategoryNetwork:        pol(3),
		CategoryUpstreamServer: pol(2),
		CategoryTimeout:        pol(2),
		CategoryRateLimited:    pol(1),
		CategoryUnknown:        pol(1),
		CategoryAuthentication: pol(0),
		CategoryQuotaExceeded:  pol(0),
		CategoryValidation:     pol(0),
		CategoryConfiguration:  pol(0),
	}
}

// UpstreamError is a failure from the AI provider carrying its HTTP status.
type UpstreamError struct {
	Status     int
	RetryAfter time.Duration
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

// ClassifiedError is the terminal error surfaced once the retry budget for a
// failure is exhausted or retry was never permitted.
type ClassifiedError struct {
	Classification Classification
	// UserMessage is the fixed non-technical explanation for the surface.
	UserMessage string
	// ShouldRetry tells the surface whether offering a manual retry makes
	// sense for this category.
	ShouldRetry bool
	Err         error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Classification.Category, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }
