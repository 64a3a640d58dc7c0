package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// resultEnvelope is the success response shape.
type resultEnvelope struct {
	Result any `json:"result"`
}

// errorEnvelope is the failure response shape. The calling surface uses
// ErrorCategory and ShouldRetry to decide whether to offer a manual retry.
type errorEnvelope struct {
	Error         string `json:"error"`
	ErrorCategory string `json:"errorCategory"`
	ShouldRetry   bool   `json:"shouldRetry"`
	RetryDelayMs  int64  `json:"retryDelayMs,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, resultEnvelope{Result: v})
}

// writeError maps the router taxonomy and the resilience executor's
// classified errors onto HTTP statuses and the error envelope.
func writeError(w http.ResponseWriter, err error) {
	var cerr *domain.ClassifiedError
	if errors.As(err, &cerr) {
		writeJSON(w, statusForCategory(cerr.Classification.Category), errorEnvelope{
			Error:         cerr.UserMessage,
			ErrorCategory: string(cerr.Classification.Category),
			ShouldRetry:   cerr.ShouldRetry,
			RetryDelayMs:  cerr.Classification.RetryAfter.Milliseconds(),
		})
		return
	}

	var rerr *domain.RateLimitError
	if errors.As(err, &rerr) {
		retryAfterSecs := int64(rerr.RetryAfter.Seconds())
		if retryAfterSecs < 1 {
			retryAfterSecs = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSecs, 10))
		writeJSON(w, http.StatusTooManyRequests, errorEnvelope{
			Error:         "Too many requests. Wait " + strconv.FormatInt(retryAfterSecs, 10) + " seconds and try again.",
			ErrorCategory: "rate_limited",
			ShouldRetry:   true,
			RetryDelayMs:  rerr.RetryAfter.Milliseconds(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMalformedRequest), errors.Is(err, domain.ErrInvalidPayload):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownOrigin), errors.Is(err, domain.ErrSecurityBlocked):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownRoute):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, errorEnvelope{
		Error:         err.Error(),
		ErrorCategory: domain.CategoryForRouterError(err),
		ShouldRetry:   false,
	})
}

// statusForCategory maps upstream failure categories to HTTP statuses.
func statusForCategory(c domain.FailureCategory) int {
	switch c {
	case domain.CategoryTimeout:
		return http.StatusGatewayTimeout
	case domain.CategoryRateLimited:
		return http.StatusServiceUnavailable
	case domain.CategoryValidation:
		return http.StatusUnprocessableEntity
	case domain.CategoryConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
