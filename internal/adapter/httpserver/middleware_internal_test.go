package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/observability"
)

func TestRequestID_PropagatesThroughContext(t *testing.T) {
	var seenID string
	var sameLogger bool
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = observability.RequestIDFromContext(r.Context())
		sameLogger = LoggerFrom(r) == observability.LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, r)

	require.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rw.Header().Get("X-Request-Id"))
	assert.True(t, sameLogger)
}

func TestRequestID_KeepsCallerProvidedID(t *testing.T) {
	var seenID string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = observability.RequestIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "caller-id-1")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "caller-id-1", seenID)
	assert.Equal(t, "caller-id-1", r.Header.Get("X-Request-Id"))
}
