// Package service implements ledger anchoring: digest the verdict, submit it
// to the ledger gateway, and track confirmation state. Anchoring is fully
// asynchronous; it never blocks verdict availability in the detect service.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/ledgerclient"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/metrics"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/digest"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// AnchorService anchors anomaly verdicts on the ledger.
type AnchorService struct {
	cfg       config.AnchorConfig
	ledger    ledgerclient.Ledger
	repo      repository.Repository
	signer    *digest.Signer
	publisher messaging.Publisher
	logger    *logging.Logger
}

// New assembles the service. publisher may be nil when messaging is disabled.
func New(cfg config.AnchorConfig, ledger ledgerclient.Ledger, repo repository.Repository, signer *digest.Signer, publisher messaging.Publisher, logger *logging.Logger) *AnchorService {
	return &AnchorService{
		cfg:       cfg,
		ledger:    ledger,
		repo:      repo,
		signer:    signer,
		publisher: publisher,
		logger:    logger,
	}
}

// Anchor processes one anomaly record: digest, submit, await confirmations.
// A record already confirmed is returned as-is, so duplicate event delivery
// is harmless. On confirmation timeout the anchor stays pending and the
// retry scheduler takes over; pending is a state, not a failure.
func (s *AnchorService) Anchor(ctx context.Context, rec *models.AnomalyRecord) (*models.LedgerAnchor, error) {
	existing, err := s.repo.Get(ctx, rec.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load anchor state: %w", err)
	}
	if existing != nil && existing.Status == models.AnchorConfirmed {
		return existing, nil
	}

	d, err := digest.Record(rec)
	if err != nil {
		return nil, fmt.Errorf("digest verdict: %w", err)
	}

	anchor := &models.LedgerAnchor{
		AnomalyID: rec.ID,
		Digest:    d,
		Status:    models.AnchorPending,
	}
	if existing != nil {
		anchor.Attempts = existing.Attempts
	}
	return s.submit(ctx, anchor)
}

// Retry re-submits a stored pending anchor. The digest was persisted with
// the anchor, so the full anomaly record is not needed again.
func (s *AnchorService) Retry(ctx context.Context, anchor *models.LedgerAnchor) (*models.LedgerAnchor, error) {
	metrics.RetriesTotal.Inc()
	cp := *anchor
	return s.submit(ctx, &cp)
}

func (s *AnchorService) submit(ctx context.Context, anchor *models.LedgerAnchor) (*models.LedgerAnchor, error) {
	anchor.Attempts++

	start := time.Now()
	txRef, err := s.ledger.Submit(ctx, anchor.Digest, s.signer.Sign(anchor.Digest))
	metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// Persist the failed attempt so the retry scheduler sees it.
		if uerr := s.repo.Upsert(ctx, anchor); uerr != nil {
			s.logger.ErrorContext(ctx, "failed to store anchor attempt",
				logging.AnomalyID(anchor.AnomalyID), logging.Error(uerr))
		}
		metrics.AnchorsTotal.WithLabelValues("submit_error").Inc()
		return nil, fmt.Errorf("submit digest: %w", err)
	}

	anchor.TxRef = txRef
	if err := s.repo.Upsert(ctx, anchor); err != nil {
		return nil, fmt.Errorf("store pending anchor: %w", err)
	}
	s.logger.InfoContext(ctx, "digest submitted to ledger",
		logging.AnomalyID(anchor.AnomalyID), logging.TxRef(txRef),
		"attempt", anchor.Attempts)

	return s.awaitConfirmation(ctx, anchor, start)
}

func (s *AnchorService) awaitConfirmation(ctx context.Context, anchor *models.LedgerAnchor, submitted time.Time) (*models.LedgerAnchor, error) {
	pollInterval := s.cfg.Ledger.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	confirmTimeout := s.cfg.Ledger.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(confirmTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			// The pending state is already persisted; the scheduler resumes.
			return anchor, nil
		case <-deadline.C:
			metrics.AnchorsTotal.WithLabelValues("pending").Inc()
			s.logger.WarnContext(ctx, "confirmation timeout, anchor stays pending",
				logging.AnomalyID(anchor.AnomalyID), logging.TxRef(anchor.TxRef))
			return anchor, nil
		case <-ticker.C:
			st, err := s.ledger.Status(ctx, anchor.TxRef)
			if err != nil {
				s.logger.DebugContext(ctx, "ledger status poll failed",
					logging.TxRef(anchor.TxRef), logging.Error(err))
				continue
			}
			if st.Confirmations < s.cfg.Ledger.Confirmations {
				continue
			}

			anchor.BlockRef = st.BlockRef
			anchor.ConsensusRatio = st.ConsensusRatio
			anchor.Status = models.AnchorConfirmed
			anchor.AnchoredAt = time.Now().UTC()
			if err := s.repo.Upsert(ctx, anchor); err != nil {
				return nil, fmt.Errorf("store confirmed anchor: %w", err)
			}

			metrics.AnchorsTotal.WithLabelValues("confirmed").Inc()
			metrics.ConfirmDuration.Observe(time.Since(submitted).Seconds())
			s.publishResult(ctx, messaging.SubjectAnchorConfirmed, anchor)
			s.logger.InfoContext(ctx, "anchor confirmed",
				logging.AnomalyID(anchor.AnomalyID), logging.TxRef(anchor.TxRef),
				"block_ref", anchor.BlockRef)
			return anchor, nil
		}
	}
}

// MarkUnreachable abandons an anchor after its retry budget is exhausted.
func (s *AnchorService) MarkUnreachable(ctx context.Context, anchor *models.LedgerAnchor) error {
	cp := *anchor
	cp.Status = models.AnchorUnreachable
	if err := s.repo.Upsert(ctx, &cp); err != nil {
		return fmt.Errorf("store unreachable anchor: %w", err)
	}
	metrics.UnreachableTotal.Inc()
	metrics.AnchorsTotal.WithLabelValues("unreachable").Inc()
	s.publishResult(ctx, messaging.SubjectAnchorFailed, &cp)
	s.logger.ErrorContext(ctx, "anchor abandoned after retry budget",
		logging.AnomalyID(anchor.AnomalyID), "attempts", anchor.Attempts)
	return nil
}

func (s *AnchorService) publishResult(ctx context.Context, subject string, anchor *models.LedgerAnchor) {
	if s.publisher == nil {
		return
	}
	evt := messaging.AnchorResultEvent{
		AnomalyID: anchor.AnomalyID,
		Status:    anchor.Status,
		TxRef:     anchor.TxRef,
		EmittedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode anchor event", logging.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.logger.WarnContext(ctx, "failed to publish anchor event",
			"subject", subject, logging.Error(err))
	}
}

// GetAnchor returns the stored anchor for an anomaly.
func (s *AnchorService) GetAnchor(ctx context.Context, anomalyID string) (*models.LedgerAnchor, error) {
	return s.repo.Get(ctx, anomalyID)
}

// PendingAnchors lists anchors awaiting confirmation for the retry scheduler.
func (s *AnchorService) PendingAnchors(ctx context.Context, limit int) ([]models.LedgerAnchor, error) {
	return s.repo.ListPending(ctx, limit)
}

// Ping checks the anchor store connection.
func (s *AnchorService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
