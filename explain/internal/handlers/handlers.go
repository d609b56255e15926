// Package handlers exposes the explanation HTTP API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chaintrace-systems/chaintrace-stack/common/httputil"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/service"
)

// Handler serves the explanation API.
type Handler struct {
	svc *service.ExplainService
}

func NewHandler(svc *service.ExplainService) *Handler {
	return &Handler{svc: svc}
}

// GetExplanation handles GET /api/v1/explanations/{anomalyID}.
func (h *Handler) GetExplanation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/explanations/")
	if id == "" || strings.Contains(id, "/") {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	exp, err := h.svc.GetExplanation(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			httputil.WriteError(w, http.StatusNotFound, "anomaly not found")
		case errors.Is(err, service.ErrExplanationUnavailable):
			httputil.WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			httputil.WriteError(w, http.StatusGatewayTimeout, "explanation timed out")
		default:
			httputil.WriteError(w, http.StatusInternalServerError, "explanation failed")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exp)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz: ready only when the anomaly store answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":        "ready",
		"model_version": h.svc.ModelVersion(),
	})
}
