// Package scheduler retries pending ledger anchors. Submissions that failed
// or timed out waiting for confirmations are re-submitted with exponential
// backoff until they confirm or exhaust the attempt budget.
package scheduler

import (
	"context"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/service"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
)

const sweepLimit = 100

// Scheduler periodically sweeps pending anchors.
type Scheduler struct {
	cfg    config.RetryConfig
	svc    *service.AnchorService
	logger *logging.Logger
}

func New(cfg config.RetryConfig, svc *service.AnchorService, logger *logging.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, svc: svc, logger: logger}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("anchor retry scheduler started", "check_interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("anchor retry scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep retries every pending anchor whose backoff has elapsed and abandons
// those that exhausted the attempt budget.
func (s *Scheduler) Sweep(ctx context.Context) {
	pending, err := s.svc.PendingAnchors(ctx, sweepLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list pending anchors", logging.Error(err))
		return
	}

	now := time.Now()
	for i := range pending {
		anchor := pending[i]

		if s.cfg.MaxAttempts > 0 && anchor.Attempts >= s.cfg.MaxAttempts {
			if err := s.svc.MarkUnreachable(ctx, &anchor); err != nil {
				s.logger.ErrorContext(ctx, "failed to abandon anchor",
					logging.AnomalyID(anchor.AnomalyID), logging.Error(err))
			}
			continue
		}

		if now.Sub(anchor.UpdatedAt) < s.backoff(anchor.Attempts) {
			continue
		}

		if _, err := s.svc.Retry(ctx, &anchor); err != nil {
			s.logger.WarnContext(ctx, "anchor retry failed",
				logging.AnomalyID(anchor.AnomalyID),
				"attempts", anchor.Attempts+1, logging.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// backoff doubles per attempt from the base, capped at the maximum.
func (s *Scheduler) backoff(attempts int) time.Duration {
	base := s.cfg.BaseBackoff
	if base <= 0 {
		base = 10 * time.Second
	}
	max := s.cfg.MaxBackoff
	if max <= 0 {
		max = 10 * time.Minute
	}

	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
