package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDPropagatesCallerHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", nil)
	req.Header.Set("X-Request-ID", "req-from-caller")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-from-caller", seen)
	assert.Equal(t, "req-from-caller", rr.Header().Get("X-Request-ID"))
}

func TestRequestIDMintsWhenMissing(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies", nil))

	require.NotEmpty(t, seen)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err, "minted request ID should be a UUID")
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"), "context and response header should match")
}

func TestRequestIDUniquePerRequest(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	ids := make(map[string]bool)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		ids[rr.Header().Get("X-Request-ID")] = true
	}
	assert.Len(t, ids, 5)
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}
