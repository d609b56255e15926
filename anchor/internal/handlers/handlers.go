// Package handlers exposes the anchor lookup HTTP API.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/service"
	"github.com/chaintrace-systems/chaintrace-stack/common/httputil"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
)

// Handler serves the anchor API.
type Handler struct {
	svc    *service.AnchorService
	broker messaging.Client
}

// NewHandler builds the handler. broker may be nil when the service runs
// without a message broker.
func NewHandler(svc *service.AnchorService, broker messaging.Client) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// GetAnchor handles GET /api/v1/anchors/{anomalyID}.
func (h *Handler) GetAnchor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/anchors/")
	if id == "" || strings.Contains(id, "/") {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	anchor, err := h.svc.GetAnchor(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "no anchor for this anomaly")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, anchor)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz: ready only when the anchor store answers.
// The broker state is reported but does not gate readiness, since lookups
// and retry sweeps work without it.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"broker": messaging.CheckBroker(h.broker),
	})
}
