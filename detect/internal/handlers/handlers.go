// Package handlers exposes the detection HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/httputil"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/normalizer"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/service"
)

// Handler serves the detection API.
type Handler struct {
	svc             *service.DetectService
	maxPayloadBytes int64
}

func NewHandler(svc *service.DetectService, maxPayloadBytes int) *Handler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 1 << 20
	}
	return &Handler{svc: svc, maxPayloadBytes: int64(maxPayloadBytes)}
}

// SubmitTelemetry handles POST /api/v1/telemetry.
func (h *Handler) SubmitTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxPayloadBytes+1))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close()
	if int64(len(body)) > h.maxPayloadBytes {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	var sub dmodels.TelemetrySubmission
	if err := json.Unmarshal(body, &sub); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if digest := r.Header.Get("X-Chaintrace-Digest"); digest != "" {
		sub.Digest = digest
	}
	if sub.Source == "" {
		sub.Source = httputil.NewSubmitter(r).Source()
	}

	rec, err := h.svc.SubmitTelemetry(r.Context(), &sub)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, err error) {
	var verr *normalizer.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrDetectionTimeout):
		httputil.WriteError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, service.ErrIntegrityRejected):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "detection failed")
	}
}

// ListAnomalies handles GET /api/v1/anomalies.
func (h *Handler) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.QueryAnomalies(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if res.Records == nil {
		res.Records = []models.AnomalyRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// GetAnomaly handles GET /api/v1/anomalies/{id}.
func (h *Handler) GetAnomaly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/anomalies/")
	if id == "" || strings.Contains(id, "/") {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	rec, err := h.svc.GetAnomaly(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "anomaly not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz: ready only when the store answers.
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

func parseFilter(r *http.Request) (dmodels.QueryFilter, error) {
	q := r.URL.Query()
	f := dmodels.QueryFilter{OrgID: q.Get("org")}

	if dt := q.Get("data_type"); dt != "" {
		parsed, err := models.ParseDataType(dt)
		if err != nil {
			return f, err
		}
		f.DataType = parsed
	}
	if sev := q.Get("min_severity"); sev != "" {
		parsed, err := models.ParseSeverity(sev)
		if err != nil {
			return f, err
		}
		f.MinSeverity = parsed
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return f, errors.New("from must be RFC3339")
		}
		f.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return f, errors.New("to must be RFC3339")
		}
		f.To = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}
