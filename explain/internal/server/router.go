package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaintrace-systems/chaintrace-stack/common/middleware"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/handlers"
)

// NewRouter constructs a ServeMux with explanation API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/explanations/", h.GetExplanation)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
