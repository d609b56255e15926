package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	"github.com/chaintrace-systems/chaintrace-stack/common/severity"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/archive"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/ensemble"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/normalizer"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/privacy"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/rules"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/service"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	preRules, err := rules.NewEngine(config.PreRulesConfig{})
	require.NoError(t, err)

	svc := service.New(
		config.PipelineConfig{
			RecordTimeout:   5 * time.Second,
			DetectorTimeout: time.Second,
			EnsembleTimeout: 2 * time.Second,
		},
		normalizer.DefaultRegistry(),
		artifact.Default(),
		ensemble.NewEngine(time.Second, 2*time.Second),
		severity.NewClassifier(severity.DefaultThresholds()),
		preRules,
		repository.NewMemoryRepository(),
		archive.NoopArchiver{},
		privacy.NoopVerifier{},
		nil,
		logging.Default(),
	)
	return NewHandler(svc, 1<<20)
}

func TestSubmitTelemetryHandler(t *testing.T) {
	h := newTestHandler(t)

	body := `{"record_id":"rec-1","org_id":"org-1","data_type":"temperature","fields":{"value":4.0}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.SubmitTelemetry(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var rec models.AnomalyRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "rec-1", rec.Verdict.RecordID)
	assert.NotEmpty(t, rec.ID)
}

func TestSubmitTelemetryHandlerValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"unknown data type", `{"org_id":"o","data_type":"sound","fields":{"value":1}}`, http.StatusBadRequest},
		{"missing org", `{"data_type":"temperature","fields":{"value":1}}`, http.StatusBadRequest},
		{"missing value", `{"org_id":"o","data_type":"temperature","fields":{}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.SubmitTelemetry(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSubmitTelemetryHandlerMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry", nil)
	w := httptest.NewRecorder()
	h.SubmitTelemetry(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSubmitTelemetryHandlerPayloadTooLarge(t *testing.T) {
	h := newTestHandler(t)
	h.maxPayloadBytes = 64

	big := `{"org_id":"org-1","data_type":"temperature","fields":{"value":4.0,"pad":"` +
		strings.Repeat("x", 200) + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(big))
	w := httptest.NewRecorder()
	h.SubmitTelemetry(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestListAnomaliesHandler(t *testing.T) {
	h := newTestHandler(t)

	for _, id := range []string{"a", "b"} {
		body := `{"record_id":"` + id + `","org_id":"org-1","data_type":"temperature","fields":{"value":40.0}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.SubmitTelemetry(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/anomalies?org=org-1&min_severity=info", nil)
	w := httptest.NewRecorder()
	h.ListAnomalies(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res dmodels.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Records, 2)
}

func TestListAnomaliesHandlerBadParams(t *testing.T) {
	h := newTestHandler(t)

	tests := []string{
		"/api/v1/anomalies?min_severity=urgent",
		"/api/v1/anomalies?data_type=sound",
		"/api/v1/anomalies?from=yesterday",
		"/api/v1/anomalies?limit=-1",
	}
	for _, url := range tests {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		w := httptest.NewRecorder()
		h.ListAnomalies(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
	}
}

func TestGetAnomalyHandler(t *testing.T) {
	h := newTestHandler(t)

	body := `{"record_id":"rec-1","org_id":"org-1","data_type":"temperature","fields":{"value":4.0}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/telemetry", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.SubmitTelemetry(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.AnomalyRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/anomalies/"+created.ID, nil)
	w = httptest.NewRecorder()
	h.GetAnomaly(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/anomalies/does-not-exist", nil)
	w = httptest.NewRecorder()
	h.GetAnomaly(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Ready(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), artifact.DefaultVersion)
}
