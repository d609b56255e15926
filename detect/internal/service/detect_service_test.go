package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	"github.com/chaintrace-systems/chaintrace-stack/common/severity"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/archive"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/ensemble"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/normalizer"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/privacy"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/rules"
)

// capturePublisher records publishes without a broker.
type capturePublisher struct {
	published []capturedMsg
	err       error
}

type capturedMsg struct {
	subject string
	data    []byte
}

func (p *capturePublisher) Publish(_ context.Context, subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, capturedMsg{subject: subject, data: data})
	return nil
}

func (p *capturePublisher) PublishMsg(_ context.Context, msg *messaging.Message) error {
	return p.Publish(context.Background(), msg.Subject, msg.Data)
}

func (p *capturePublisher) Request(context.Context, string, []byte, time.Duration) (*messaging.Message, error) {
	return nil, nil
}

func (p *capturePublisher) Close() error { return nil }

func newTestService(t *testing.T, repo repository.Repository, pub messaging.Publisher) *DetectService {
	t.Helper()
	return newTestServiceWith(t, repo, pub, artifact.Default(), archive.NoopArchiver{})
}

func newTestServiceWith(t *testing.T, repo repository.Repository, pub messaging.Publisher, model *artifact.Artifact, arch archive.Archiver) *DetectService {
	t.Helper()

	preRules, err := rules.NewEngine(config.PreRulesConfig{Rules: []config.PreRule{
		{DataType: "temperature", Field: "temp_c", Op: "gt", Value: 30, Severity: "critical"},
	}})
	require.NoError(t, err)

	return New(
		config.PipelineConfig{
			RecordTimeout:   5 * time.Second,
			DetectorTimeout: time.Second,
			EnsembleTimeout: 2 * time.Second,
		},
		normalizer.DefaultRegistry(),
		model,
		ensemble.NewEngine(time.Second, 2*time.Second),
		severity.NewClassifier(severity.DefaultThresholds()),
		preRules,
		repo,
		arch,
		privacy.NoopVerifier{},
		pub,
		logging.Default(),
	)
}

func submission(recordID string, fields map[string]any) *dmodels.TelemetrySubmission {
	return &dmodels.TelemetrySubmission{
		RecordID: recordID,
		OrgID:    "org-1",
		DataType: "temperature",
		Fields:   fields,
	}
}

func TestSubmitTelemetryStoresVerdict(t *testing.T) {
	repo := repository.NewMemoryRepository()
	pub := &capturePublisher{}
	svc := newTestService(t, repo, pub)

	rec, err := svc.SubmitTelemetry(context.Background(), submission("rec-1", map[string]any{
		"value": 4.0, "setpoint": 4.0,
	}))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "org-1", rec.OrgID)
	assert.Equal(t, models.DataTypeTemperature, rec.DataType)
	assert.Equal(t, "rec-1", rec.Verdict.RecordID)
	assert.Equal(t, 1, rec.Verdict.Version)
	assert.Equal(t, artifact.DefaultVersion, rec.ModelVersion)
	assert.Len(t, rec.Verdict.Scores, 3)
	assert.False(t, rec.Verdict.Degraded)

	// The returned verdict is exactly what was stored.
	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Verdict.Confidence, stored.Verdict.Confidence)
	assert.Equal(t, rec.Verdict.Severity, stored.Verdict.Severity)

	// An anomaly-created event went out.
	require.Len(t, pub.published, 1)
	assert.Equal(t, messaging.SubjectDetectAnomaliesCreated, pub.published[0].subject)
}

func TestSubmitTelemetryOutlierScoresHigher(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := newTestService(t, repo, &capturePublisher{})

	normal, err := svc.SubmitTelemetry(context.Background(), submission("rec-normal", map[string]any{
		"value": 4.0, "setpoint": 4.0,
	}))
	require.NoError(t, err)

	outlier, err := svc.SubmitTelemetry(context.Background(), submission("rec-outlier", map[string]any{
		"value": 28.0, "setpoint": 4.0,
	}))
	require.NoError(t, err)

	assert.Greater(t, outlier.Verdict.Confidence, normal.Verdict.Confidence)
	assert.True(t, outlier.Verdict.Severity.AtLeast(normal.Verdict.Severity))
}

func TestSubmitTelemetryValidationError(t *testing.T) {
	svc := newTestService(t, repository.NewMemoryRepository(), &capturePublisher{})

	_, err := svc.SubmitTelemetry(context.Background(), submission("rec-1", map[string]any{
		"value": "not-a-number",
	}))

	var verr *normalizer.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSubmitTelemetryResubmitSameVersionIdempotent(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := newTestService(t, repo, &capturePublisher{})

	fields := map[string]any{"value": 4.0, "setpoint": 4.0}
	_, err := svc.SubmitTelemetry(context.Background(), submission("rec-1", fields))
	require.NoError(t, err)
	_, err = svc.SubmitTelemetry(context.Background(), submission("rec-1", fields))
	require.NoError(t, err)

	res, err := svc.QueryAnomalies(context.Background(), dmodels.QueryFilter{OrgID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestSubmitTelemetryNewVerdictVersion(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := newTestService(t, repo, &capturePublisher{})

	sub := submission("rec-1", map[string]any{"value": 4.0})
	_, err := svc.SubmitTelemetry(context.Background(), sub)
	require.NoError(t, err)

	sub.Version = 2
	_, err = svc.SubmitTelemetry(context.Background(), sub)
	require.NoError(t, err)

	res, err := svc.QueryAnomalies(context.Background(), dmodels.QueryFilter{OrgID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

// mismatchedArtifact expects three features where the temperature normalizer
// produces at most two, so every detector fails on dimension checks.
func mismatchedArtifact() *artifact.Artifact {
	return &artifact.Artifact{
		Version: "test-mismatch",
		DataTypes: map[string]artifact.TypeModel{
			"temperature": {
				Schema: artifact.FeatureSchema{
					Features:  []string{"a", "b", "c"},
					Baselines: map[string]float64{"a": 0, "b": 0, "c": 0},
				},
				SVM: &artifact.SVMParams{
					Gamma:          0.5,
					SupportVectors: [][]float64{{0, 0, 0}},
					Alphas:         []float64{1},
				},
				Density: &artifact.DensityParams{
					Eps:       1,
					MinPoints: 1,
					Points:    [][]float64{{0, 0, 0}},
				},
			},
		},
	}
}

func TestSubmitTelemetryEnsembleUnavailableStoresDegradedInfo(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := newTestServiceWith(t, repo, &capturePublisher{}, mismatchedArtifact(), archive.NoopArchiver{})

	rec, err := svc.SubmitTelemetry(context.Background(), submission("rec-1", map[string]any{
		"value": 4.0, "setpoint": 4.0,
	}))
	require.NoError(t, err, "a fully unavailable ensemble is absorbed, not surfaced")

	assert.Equal(t, models.SeverityInfo, rec.Verdict.Severity)
	assert.Zero(t, rec.Verdict.Confidence)
	assert.True(t, rec.Verdict.Degraded)
	for _, s := range rec.Verdict.Scores {
		assert.True(t, s.Unavailable, "detector %s", s.Detector)
	}

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityInfo, stored.Verdict.Severity)
	assert.Zero(t, stored.Verdict.Confidence)
	assert.True(t, stored.Verdict.Degraded)
}

// failingArchiver rejects every index request.
type failingArchiver struct{}

func (failingArchiver) WriteIndex() string { return "telemetry-write" }

func (failingArchiver) Index(context.Context, []*models.TelemetryRecord) (models.TelemetryRef, error) {
	return models.TelemetryRef{}, assert.AnError
}

func TestSubmitTelemetryArchiveFailureClearsTelemetryRef(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := newTestServiceWith(t, repo, &capturePublisher{}, artifact.Default(), failingArchiver{})

	rec, err := svc.SubmitTelemetry(context.Background(), submission("rec-1", map[string]any{"value": 4.0}))
	require.NoError(t, err, "archive failure must not fail the submission")

	assert.Empty(t, rec.TelemetryRef.Index, "the record must not reference a document that was never indexed")
	assert.Empty(t, rec.TelemetryRef.RecordID)

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.TelemetryRef.Index)
}

func TestSubmitTelemetryPublishFailureDoesNotFailSubmit(t *testing.T) {
	repo := repository.NewMemoryRepository()
	pub := &capturePublisher{err: assert.AnError}
	svc := newTestService(t, repo, pub)

	rec, err := svc.SubmitTelemetry(context.Background(), submission("rec-1", map[string]any{"value": 4.0}))
	require.NoError(t, err)

	_, err = repo.GetByID(context.Background(), rec.ID)
	assert.NoError(t, err)
}

func TestMetricDataTypeClosesLabelSet(t *testing.T) {
	assert.Equal(t, "temperature", metricDataType("temperature"))
	assert.Equal(t, "mixed", metricDataType("mixed"))
	// Client input never becomes a label value: unknown types collapse to one.
	assert.Equal(t, "unknown", metricDataType("vibration"))
	assert.Equal(t, "unknown", metricDataType(""))
	assert.Equal(t, "unknown", metricDataType("Temperature; DROP TABLE"))
}

func TestQueryAnomaliesPassthrough(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := newTestService(t, repo, &capturePublisher{})

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.SubmitTelemetry(context.Background(), submission(id, map[string]any{"value": 4.0}))
		require.NoError(t, err)
	}

	res, err := svc.QueryAnomalies(context.Background(), dmodels.QueryFilter{OrgID: "org-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.Limit)
}
