package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/ledgerclient"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/digest"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

type mockLedger struct {
	mu      sync.Mutex
	submits int
	polls   int

	submit func(digest, signature string) (string, error)
	status func(txRef string, poll int) (*ledgerclient.TxStatus, error)
}

func (m *mockLedger) Submit(_ context.Context, d, sig string) (string, error) {
	m.mu.Lock()
	m.submits++
	m.mu.Unlock()
	return m.submit(d, sig)
}

func (m *mockLedger) Status(_ context.Context, txRef string) (*ledgerclient.TxStatus, error) {
	m.mu.Lock()
	m.polls++
	poll := m.polls
	m.mu.Unlock()
	return m.status(txRef, poll)
}

func (m *mockLedger) submitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submits
}

type capturePublisher struct {
	mu       sync.Mutex
	messages []messaging.Message
}

func (p *capturePublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, messaging.Message{Subject: subject, Data: data})
	return nil
}

func (p *capturePublisher) PublishMsg(_ context.Context, msg *messaging.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, *msg)
	return nil
}

func (p *capturePublisher) Request(context.Context, string, []byte, time.Duration) (*messaging.Message, error) {
	return nil, errors.New("not implemented")
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.messages {
		out = append(out, m.Subject)
	}
	return out
}

func testConfig() config.AnchorConfig {
	return config.AnchorConfig{
		Ledger: config.LedgerConfig{
			Confirmations:  2,
			PollInterval:   time.Millisecond,
			ConfirmTimeout: time.Second,
		},
	}
}

func anomalyRecord(id string) *models.AnomalyRecord {
	return &models.AnomalyRecord{
		ID:    id,
		OrgID: "org-acme",
		Verdict: models.AnomalyVerdict{
			RecordID: "shipment-42", Version: 1,
			Confidence: 0.99, Severity: models.SeverityHigh,
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func newTestService(cfg config.AnchorConfig, ledger ledgerclient.Ledger, repo repository.Repository, pub messaging.Publisher) *AnchorService {
	return New(cfg, ledger, repo, digest.NewSigner("test-secret"), pub,
		logging.New(slog.LevelError, "text"))
}

func TestAnchorPendingThenConfirmed(t *testing.T) {
	ledger := &mockLedger{
		submit: func(d, sig string) (string, error) {
			require.NotEmpty(t, d)
			require.NotEmpty(t, sig)
			return "tx-0001", nil
		},
		status: func(_ string, poll int) (*ledgerclient.TxStatus, error) {
			// First polls below the confirmation threshold, then above.
			if poll < 3 {
				return &ledgerclient.TxStatus{TxRef: "tx-0001", Confirmations: poll - 1}, nil
			}
			return &ledgerclient.TxStatus{
				TxRef: "tx-0001", BlockRef: "block-99",
				Confirmations: 2, ConsensusRatio: 0.86,
			}, nil
		},
	}
	repo := repository.NewMemoryRepository()
	pub := &capturePublisher{}
	svc := newTestService(testConfig(), ledger, repo, pub)

	anchor, err := svc.Anchor(context.Background(), anomalyRecord("anomaly-1"))
	require.NoError(t, err)

	assert.Equal(t, models.AnchorConfirmed, anchor.Status)
	assert.Equal(t, "tx-0001", anchor.TxRef)
	assert.Equal(t, "block-99", anchor.BlockRef)
	assert.InDelta(t, 0.86, anchor.ConsensusRatio, 1e-9)
	assert.False(t, anchor.AnchoredAt.IsZero())

	stored, err := repo.Get(context.Background(), "anomaly-1")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, stored.Status)

	assert.Contains(t, pub.subjects(), messaging.SubjectAnchorConfirmed)
}

func TestAnchorConfirmTimeoutStaysPending(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger.ConfirmTimeout = 20 * time.Millisecond

	ledger := &mockLedger{
		submit: func(string, string) (string, error) { return "tx-0002", nil },
		status: func(string, int) (*ledgerclient.TxStatus, error) {
			return &ledgerclient.TxStatus{TxRef: "tx-0002", Confirmations: 0}, nil
		},
	}
	repo := repository.NewMemoryRepository()
	pub := &capturePublisher{}
	svc := newTestService(cfg, ledger, repo, pub)

	anchor, err := svc.Anchor(context.Background(), anomalyRecord("anomaly-2"))
	require.NoError(t, err)
	assert.Equal(t, models.AnchorPending, anchor.Status)

	stored, err := repo.Get(context.Background(), "anomaly-2")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorPending, stored.Status)
	assert.Equal(t, "tx-0002", stored.TxRef)
	assert.Equal(t, 1, stored.Attempts)
	assert.Empty(t, pub.subjects())
}

func TestAnchorSubmitFailureRecordsAttempt(t *testing.T) {
	ledger := &mockLedger{
		submit: func(string, string) (string, error) {
			return "", errors.New("gateway down")
		},
	}
	repo := repository.NewMemoryRepository()
	svc := newTestService(testConfig(), ledger, repo, &capturePublisher{})

	_, err := svc.Anchor(context.Background(), anomalyRecord("anomaly-3"))
	require.Error(t, err)

	stored, err := repo.Get(context.Background(), "anomaly-3")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Empty(t, stored.TxRef)
}

func TestAnchorDuplicateDeliveryIsIdempotent(t *testing.T) {
	ledger := &mockLedger{
		submit: func(string, string) (string, error) { return "tx-0004", nil },
		status: func(string, int) (*ledgerclient.TxStatus, error) {
			return &ledgerclient.TxStatus{TxRef: "tx-0004", BlockRef: "block-1", Confirmations: 2}, nil
		},
	}
	repo := repository.NewMemoryRepository()
	svc := newTestService(testConfig(), ledger, repo, &capturePublisher{})

	rec := anomalyRecord("anomaly-4")
	first, err := svc.Anchor(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, models.AnchorConfirmed, first.Status)

	again, err := svc.Anchor(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, first.TxRef, again.TxRef)
	assert.Equal(t, 1, ledger.submitCount(), "a confirmed anchor must not be re-submitted")
}

func TestRetryIncrementsAttempts(t *testing.T) {
	ledger := &mockLedger{
		submit: func(string, string) (string, error) { return "tx-0005", nil },
		status: func(string, int) (*ledgerclient.TxStatus, error) {
			return &ledgerclient.TxStatus{TxRef: "tx-0005", BlockRef: "block-2", Confirmations: 2}, nil
		},
	}
	repo := repository.NewMemoryRepository()
	svc := newTestService(testConfig(), ledger, repo, &capturePublisher{})

	pending := &models.LedgerAnchor{
		AnomalyID: "anomaly-5",
		Digest:    "feedbeef",
		Status:    models.AnchorPending,
		Attempts:  2,
	}
	require.NoError(t, repo.Upsert(context.Background(), pending))

	anchor, err := svc.Retry(context.Background(), pending)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, anchor.Status)
	assert.Equal(t, 3, anchor.Attempts)
}

func TestMarkUnreachable(t *testing.T) {
	repo := repository.NewMemoryRepository()
	pub := &capturePublisher{}
	svc := newTestService(testConfig(), &mockLedger{}, repo, pub)

	pending := &models.LedgerAnchor{
		AnomalyID: "anomaly-6",
		Digest:    "feedbeef",
		Status:    models.AnchorPending,
		Attempts:  10,
	}
	require.NoError(t, repo.Upsert(context.Background(), pending))
	require.NoError(t, svc.MarkUnreachable(context.Background(), pending))

	stored, err := repo.Get(context.Background(), "anomaly-6")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorUnreachable, stored.Status)
	assert.Contains(t, pub.subjects(), messaging.SubjectAnchorFailed)
}
