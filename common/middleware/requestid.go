// Package middleware holds the HTTP middleware shared by the ChainTrace
// services.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the context key the request ID is stored under; the
// logging package reads it to tag every log line for a request.
const RequestIDKey = contextKey("request-id")

// RequestID propagates the caller's X-Request-ID header, minting a fresh
// UUID when none is sent. The ID is echoed on the response and stored in the
// request context so a submission can be traced from detect through the
// anchor events it triggers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored in ctx, or "" when the request
// never passed through the middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
