// Package service implements the explanation pipeline: load the anomaly
// record, check it against the current model artifact, and compute (or serve
// cached) per-feature attribution.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/attribution"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/cache"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/metrics"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/repository"
)

// ErrExplanationUnavailable is returned when a stored record cannot be
// explained by the currently loaded artifact: the model version or feature
// schema it was scored under no longer matches. The verdict stays valid;
// only the explanation is unavailable.
var ErrExplanationUnavailable = errors.New("explanation unavailable for this model version")

// ExplainService serves explanation lookups.
type ExplainService struct {
	cfg    config.ExplainConfig
	repo   repository.Reader
	engine *attribution.Engine
	cache  cache.Cache
	logger *logging.Logger
}

func New(cfg config.ExplainConfig, repo repository.Reader, engine *attribution.Engine, c cache.Cache, logger *logging.Logger) *ExplainService {
	return &ExplainService{cfg: cfg, repo: repo, engine: engine, cache: c, logger: logger}
}

// ModelVersion reports the artifact version explanations are computed against.
func (s *ExplainService) ModelVersion() string { return s.engine.ModelVersion() }

// GetExplanation returns the attribution for one anomaly record, computing
// it on first request and serving the cached copy afterwards.
func (s *ExplainService) GetExplanation(ctx context.Context, anomalyID string) (*models.Explanation, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	rec, err := s.repo.GetByID(ctx, anomalyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.ExplanationsTotal.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	if !s.engine.Matches(rec) {
		metrics.ExplanationsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("record scored under model %q, current is %q: %w",
			rec.ModelVersion, s.engine.ModelVersion(), ErrExplanationUnavailable)
	}

	if cached, err := s.cache.Get(ctx, anomalyID, s.engine.ModelVersion()); err != nil {
		// Cache trouble degrades to recompute, never to request failure.
		s.logger.WarnContext(ctx, "explanation cache read failed", logging.Error(err))
	} else if cached != nil {
		metrics.CacheHits.Inc()
		metrics.ExplanationsTotal.WithLabelValues("cache_hit").Inc()
		return cached, nil
	}
	metrics.CacheMisses.Inc()

	start := time.Now()
	exp, err := s.engine.Explain(ctx, rec)
	if err != nil {
		metrics.ExplanationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("compute explanation: %w", err)
	}
	exp.ComputedAt = time.Now().UTC()
	metrics.ComputeDuration.Observe(time.Since(start).Seconds())

	if err := s.cache.Set(ctx, exp); err != nil {
		s.logger.WarnContext(ctx, "explanation cache write failed",
			logging.AnomalyID(anomalyID), logging.Error(err))
	}

	metrics.ExplanationsTotal.WithLabelValues("computed").Inc()
	s.logger.InfoContext(ctx, "explanation computed",
		logging.AnomalyID(anomalyID),
		"model_version", exp.ModelVersion,
		"features", len(exp.Contributions),
	)
	return exp, nil
}

// Ping checks the anomaly store connection.
func (s *ExplainService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
