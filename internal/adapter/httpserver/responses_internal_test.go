package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

func decodeErr(t *testing.T, rw *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var out errorEnvelope
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	return out
}

func TestWriteError_Sentinels(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCat    string
	}{
		{domain.ErrMalformedRequest, http.StatusBadRequest, "malformed_request"},
		{domain.ErrInvalidPayload, http.StatusBadRequest, "invalid_payload"},
		{domain.ErrUnknownOrigin, http.StatusForbidden, "unknown_origin"},
		{domain.ErrSecurityBlocked, http.StatusForbidden, "security_blocked"},
		{domain.ErrUnknownRoute, http.StatusNotFound, "unknown_route"},
	}
	for _, tc := range cases {
		rw := httptest.NewRecorder()
		writeError(rw, fmt.Errorf("%w: detail", tc.err))
		assert.Equal(t, tc.wantStatus, rw.Code, "%v", tc.err)
		out := decodeErr(t, rw)
		assert.Equal(t, tc.wantCat, out.ErrorCategory)
		assert.False(t, out.ShouldRetry)
	}
}

func TestWriteError_RateLimit(t *testing.T) {
	rw := httptest.NewRecorder()
	writeError(rw, &domain.RateLimitError{Scope: "global", RetryAfter: 42 * time.Second})

	assert.Equal(t, http.StatusTooManyRequests, rw.Code)
	assert.Equal(t, "42", rw.Header().Get("Retry-After"))
	out := decodeErr(t, rw)
	assert.Equal(t, "rate_limited", out.ErrorCategory)
	assert.True(t, out.ShouldRetry)
	assert.Equal(t, int64(42000), out.RetryDelayMs)
}

func TestWriteError_Classified(t *testing.T) {
	cases := []struct {
		cat        domain.FailureCategory
		wantStatus int
	}{
		{domain.CategoryTimeout, http.StatusGatewayTimeout},
		{domain.CategoryRateLimited, http.StatusServiceUnavailable},
		{domain.CategoryValidation, http.StatusUnprocessableEntity},
		{domain.CategoryConfiguration, http.StatusInternalServerError},
		{domain.CategoryNetwork, http.StatusBadGateway},
		{domain.CategoryUpstreamServer, http.StatusBadGateway},
	}
	for _, tc := range cases {
		rw := httptest.NewRecorder()
		writeError(rw, &domain.ClassifiedError{
			Classification: domain.Classification{Category: tc.cat},
			UserMessage:    "something happened",
			ShouldRetry:    true,
			Err:            errors.New("inner"),
		})
		assert.Equal(t, tc.wantStatus, rw.Code, "category %s", tc.cat)
		out := decodeErr(t, rw)
		assert.Equal(t, string(tc.cat), out.ErrorCategory)
		assert.Equal(t, "something happened", out.Error)
		assert.True(t, out.ShouldRetry)
	}
}

func TestWriteResult(t *testing.T) {
	rw := httptest.NewRecorder()
	writeResult(rw, map[string]string{"k": "v"})
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "application/json; charset=utf-8", rw.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"result":{"k":"v"}}`, rw.Body.String())
}

func TestSanitizeTabID(t *testing.T) {
	assert.Equal(t, "tab-12", SanitizeTabID("tab-12"))
	// Disallowed characters are stripped, not truncated at.
	assert.Equal(t, "tab12xy", SanitizeTabID("tab/12?x=<y>"))
	assert.Equal(t, "", SanitizeTabID("<>|"))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, SanitizeTabID(string(long)), 100)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "https://leetcode.com", SanitizeString("  https://leetcode.com\x00 "))
	assert.Equal(t, "abc", SanitizeString("a\xffb\xfec"))

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, SanitizeString(string(long)), 1000)
}
