package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/handlers"
	"github.com/chaintrace-systems/chaintrace-stack/common/middleware"
)

// NewRouter constructs a ServeMux with anchor API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/anchors/", h.GetAnchor)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
