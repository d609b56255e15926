package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaintrace-systems/chaintrace-stack/common/middleware"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/handlers"
)

// NewRouter constructs a ServeMux with detection API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/telemetry", h.SubmitTelemetry)
	mux.HandleFunc("/api/v1/anomalies", h.ListAnomalies)
	mux.HandleFunc("/api/v1/anomalies/", h.GetAnomaly)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
