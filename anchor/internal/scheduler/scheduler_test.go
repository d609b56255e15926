package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/ledgerclient"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/service"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/digest"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

type confirmingLedger struct {
	mu      sync.Mutex
	submits int
}

func (l *confirmingLedger) Submit(context.Context, string, string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submits++
	return "tx-retry", nil
}

func (l *confirmingLedger) Status(context.Context, string) (*ledgerclient.TxStatus, error) {
	return &ledgerclient.TxStatus{TxRef: "tx-retry", BlockRef: "block-7", Confirmations: 2}, nil
}

func (l *confirmingLedger) submitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submits
}

func newTestScheduler(t *testing.T, retry config.RetryConfig) (*Scheduler, *repository.MemoryRepository, *confirmingLedger) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	ledger := &confirmingLedger{}
	svc := service.New(
		config.AnchorConfig{
			Ledger: config.LedgerConfig{
				Confirmations:  2,
				PollInterval:   time.Millisecond,
				ConfirmTimeout: time.Second,
			},
			Retry: retry,
		},
		ledger, repo, digest.NewSigner("test-secret"), nil,
		logging.New(slog.LevelError, "text"),
	)
	return New(retry, svc, logging.New(slog.LevelError, "text")), repo, ledger
}

func pendingAnchor(id string, attempts int) *models.LedgerAnchor {
	return &models.LedgerAnchor{
		AnomalyID: id,
		Digest:    "feedbeef",
		Status:    models.AnchorPending,
		Attempts:  attempts,
	}
}

func TestSweepRetriesElapsedPendingAnchors(t *testing.T) {
	sched, repo, ledger := newTestScheduler(t, config.RetryConfig{
		BaseBackoff: time.Nanosecond, // due immediately
		MaxBackoff:  time.Minute,
		MaxAttempts: 10,
	})
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, pendingAnchor("anomaly-1", 1)))

	time.Sleep(time.Millisecond) // let the backoff window elapse
	sched.Sweep(ctx)

	assert.Equal(t, 1, ledger.submitCount())
	stored, err := repo.Get(ctx, "anomaly-1")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
}

func TestSweepRespectsBackoffWindow(t *testing.T) {
	sched, repo, ledger := newTestScheduler(t, config.RetryConfig{
		BaseBackoff: time.Hour, // nothing is due yet
		MaxBackoff:  2 * time.Hour,
		MaxAttempts: 10,
	})
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, pendingAnchor("anomaly-2", 1)))

	sched.Sweep(ctx)

	assert.Equal(t, 0, ledger.submitCount())
	stored, err := repo.Get(ctx, "anomaly-2")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorPending, stored.Status)
}

func TestSweepAbandonsExhaustedAnchors(t *testing.T) {
	sched, repo, ledger := newTestScheduler(t, config.RetryConfig{
		BaseBackoff: time.Nanosecond,
		MaxBackoff:  time.Minute,
		MaxAttempts: 3,
	})
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, pendingAnchor("anomaly-3", 3)))

	sched.Sweep(ctx)

	assert.Equal(t, 0, ledger.submitCount())
	stored, err := repo.Get(ctx, "anomaly-3")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorUnreachable, stored.Status)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	sched, _, _ := newTestScheduler(t, config.RetryConfig{
		BaseBackoff: 10 * time.Second,
		MaxBackoff:  60 * time.Second,
	})

	assert.Equal(t, 10*time.Second, sched.backoff(1))
	assert.Equal(t, 20*time.Second, sched.backoff(2))
	assert.Equal(t, 40*time.Second, sched.backoff(3))
	assert.Equal(t, 60*time.Second, sched.backoff(4))
	assert.Equal(t, 60*time.Second, sched.backoff(12))
}
