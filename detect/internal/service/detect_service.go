// Package service wires the detection pipeline: normalize, score, classify,
// store, archive, and announce. One SubmitTelemetry call carries one record
// through the whole pipeline under a single deadline.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/detector"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	"github.com/chaintrace-systems/chaintrace-stack/common/severity"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/archive"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/ensemble"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/metrics"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/normalizer"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/privacy"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/rules"
)

// ErrDetectionTimeout is returned when the per-record deadline expires before
// a verdict could be stored. Nothing is persisted in that case; the caller
// may resubmit the same record/version safely.
var ErrDetectionTimeout = errors.New("detection timed out before a verdict was stored")

// ErrIntegrityRejected is returned when the privacy codec rejects the
// payload's integrity digest.
var ErrIntegrityRejected = errors.New("payload integrity verification failed")

// DetectService runs the scoring pipeline.
type DetectService struct {
	cfg        config.PipelineConfig
	normalizer *normalizer.Registry
	model      *artifact.Artifact
	engine     *ensemble.Engine
	classifier *severity.Classifier
	rules      *rules.Engine
	repo       repository.Repository
	archiver   archive.Archiver
	verifier   privacy.Verifier
	publisher  messaging.Publisher
	logger     *logging.Logger
}

// New assembles the service. publisher may be nil when messaging is disabled.
func New(
	cfg config.PipelineConfig,
	reg *normalizer.Registry,
	model *artifact.Artifact,
	engine *ensemble.Engine,
	classifier *severity.Classifier,
	preRules *rules.Engine,
	repo repository.Repository,
	archiver archive.Archiver,
	verifier privacy.Verifier,
	publisher messaging.Publisher,
	logger *logging.Logger,
) *DetectService {
	return &DetectService{
		cfg:        cfg,
		normalizer: reg,
		model:      model,
		engine:     engine,
		classifier: classifier,
		rules:      preRules,
		repo:       repo,
		archiver:   archiver,
		verifier:   verifier,
		publisher:  publisher,
		logger:     logger,
	}
}

// ModelVersion reports the loaded artifact version.
func (s *DetectService) ModelVersion() string { return s.model.Version }

// metricDataType maps client input onto the closed data-type label set so
// unvalidated strings cannot inflate metric cardinality.
func metricDataType(s string) string {
	dt, err := models.ParseDataType(s)
	if err != nil {
		return "unknown"
	}
	return string(dt)
}

// SubmitTelemetry runs one record through the pipeline and returns the stored
// anomaly record. The verdict the caller sees is exactly what was stored.
func (s *DetectService) SubmitTelemetry(ctx context.Context, sub *dmodels.TelemetrySubmission) (*models.AnomalyRecord, error) {
	start := time.Now()
	dtLabel := metricDataType(sub.DataType)

	if s.cfg.RecordTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RecordTimeout)
		defer cancel()
	}

	if sub.Digest != "" {
		payload, err := json.Marshal(sub.Fields)
		if err != nil {
			return nil, fmt.Errorf("marshal payload for verification: %w", err)
		}
		ok, err := s.verifier.VerifyIntegrity(ctx, payload, sub.Digest)
		if err != nil {
			metrics.RecordsTotal.WithLabelValues(dtLabel, "codec_error").Inc()
			return nil, fmt.Errorf("integrity verification: %w", err)
		}
		if !ok {
			metrics.RecordsTotal.WithLabelValues(dtLabel, "rejected").Inc()
			return nil, ErrIntegrityRejected
		}
	}

	rec, vec, err := s.normalizer.Normalize(ctx, sub)
	if err != nil {
		metrics.RecordsTotal.WithLabelValues(dtLabel, "invalid").Inc()
		return nil, err
	}

	version := sub.Version
	if version <= 0 {
		version = 1
	}

	detectors, err := detector.ForDataType(s.model, rec.DataType)
	if err != nil {
		return nil, err
	}

	scores, scoreErr := s.engine.Score(ctx, detectors, vec)
	if scoreErr != nil && !errors.Is(scoreErr, ensemble.ErrEnsembleUnavailable) {
		return nil, scoreErr
	}

	degraded := false
	for _, sc := range scores {
		if sc.Unavailable {
			degraded = true
			metrics.DetectorUnavailable.WithLabelValues(sc.Detector).Inc()
		}
	}

	ruleSeverity := s.rules.Evaluate(rec)
	verdict := s.classifier.Classify(rec.RecordID, version, scores, ruleSeverity, degraded)

	if degraded {
		metrics.DegradedVerdicts.Inc()
	}

	record := &models.AnomalyRecord{
		ID:           uuid.Must(uuid.NewV7()).String(),
		OrgID:        rec.OrgID,
		DataType:     rec.DataType,
		Verdict:      verdict,
		Features:     vec,
		ModelVersion: s.model.Version,
	}

	// Archive before storing the verdict, and only reference documents that
	// were actually indexed. Archive failure is non-fatal: the verdict is
	// still the product, it just carries no telemetry back-reference.
	if ref, err := s.archiver.Index(ctx, []*models.TelemetryRecord{rec}); err != nil {
		metrics.ArchiveErrors.Inc()
		s.logger.WithContext(ctx).Warn("telemetry archive indexing failed",
			logging.RecordID(rec.RecordID), logging.Error(err))
	} else {
		record.TelemetryRef = ref
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordsTotal.WithLabelValues(dtLabel, "timeout").Inc()
		return nil, ErrDetectionTimeout
	}

	storeStart := time.Now()
	if err := s.repo.Put(ctx, record); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordsTotal.WithLabelValues(dtLabel, "timeout").Inc()
			return nil, ErrDetectionTimeout
		}
		metrics.RecordsTotal.WithLabelValues(dtLabel, "store_error").Inc()
		return nil, fmt.Errorf("store verdict: %w", err)
	}
	metrics.StoreDuration.Observe(time.Since(storeStart).Seconds())

	s.publishCreated(ctx, record)

	metrics.RecordsTotal.WithLabelValues(dtLabel, "ok").Inc()
	metrics.VerdictsTotal.WithLabelValues(string(verdict.Severity)).Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	s.logger.WithContext(ctx).Info("verdict stored",
		logging.OrgID(record.OrgID),
		logging.RecordID(rec.RecordID),
		logging.AnomalyID(record.ID),
		logging.DataType(string(rec.DataType)),
		logging.Severity(string(verdict.Severity)),
	)
	return record, nil
}

// publishCreated announces the stored verdict for async anchoring. Publish
// failures never fail the submission; the retry scheduler sweeps unanchored
// records later.
func (s *DetectService) publishCreated(ctx context.Context, rec *models.AnomalyRecord) {
	if s.publisher == nil {
		return
	}
	event := messaging.AnomalyCreatedEvent{Anomaly: *rec, EmittedAt: time.Now().UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		metrics.AnchorPublishErrors.Inc()
		return
	}
	if err := s.publisher.Publish(ctx, messaging.SubjectDetectAnomaliesCreated, data); err != nil {
		metrics.AnchorPublishErrors.Inc()
		s.logger.WithContext(ctx).Warn("anomaly-created publish failed",
			logging.AnomalyID(rec.ID), logging.Error(err))
	}
}

// QueryAnomalies lists stored verdicts under the filter.
func (s *DetectService) QueryAnomalies(ctx context.Context, f dmodels.QueryFilter) (*dmodels.QueryResult, error) {
	recs, total, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	return &dmodels.QueryResult{
		Records: recs,
		Total:   total,
		Limit:   limit,
		Offset:  f.Offset,
	}, nil
}

// GetAnomaly fetches one stored record by anomaly ID.
func (s *DetectService) GetAnomaly(ctx context.Context, id string) (*models.AnomalyRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// Ping reports store health for readiness checks.
func (s *DetectService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
