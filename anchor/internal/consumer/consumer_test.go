package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
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
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

type stubLedger struct {
	submitErr error
}

func (l *stubLedger) Submit(context.Context, string, string) (string, error) {
	if l.submitErr != nil {
		return "", l.submitErr
	}
	return "tx-evt", nil
}

func (l *stubLedger) Status(context.Context, string) (*ledgerclient.TxStatus, error) {
	return &ledgerclient.TxStatus{TxRef: "tx-evt", BlockRef: "block-3", Confirmations: 2}, nil
}

func newHandler(t *testing.T, ledger ledgerclient.Ledger, repo repository.Repository) messaging.MessageHandler {
	t.Helper()
	svc := service.New(
		config.AnchorConfig{Ledger: config.LedgerConfig{
			Confirmations: 2, PollInterval: time.Millisecond, ConfirmTimeout: time.Second,
		}},
		ledger, repo, digest.NewSigner("test-secret"), nil,
		logging.New(slog.LevelError, "text"),
	)
	return Handler(svc, logging.New(slog.LevelError, "text"))
}

func eventMessage(t *testing.T, id string) *messaging.Message {
	t.Helper()
	evt := messaging.AnomalyCreatedEvent{
		Anomaly: models.AnomalyRecord{
			ID:    id,
			OrgID: "org-acme",
			Verdict: models.AnomalyVerdict{
				RecordID: "shipment-42", Version: 1,
				Confidence: 0.99, Severity: models.SeverityHigh,
				CreatedAt: time.Now().UTC(),
			},
		},
		EmittedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return &messaging.Message{Subject: messaging.SubjectDetectAnomaliesCreated, Data: data}
}

func TestHandlerAnchorsEvent(t *testing.T) {
	repo := repository.NewMemoryRepository()
	handler := newHandler(t, &stubLedger{}, repo)

	err := handler(context.Background(), eventMessage(t, "anomaly-evt-1"))
	require.NoError(t, err)

	anchor, err := repo.Get(context.Background(), "anomaly-evt-1")
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, anchor.Status)
}

func TestHandlerDropsMalformedPayload(t *testing.T) {
	repo := repository.NewMemoryRepository()
	handler := newHandler(t, &stubLedger{}, repo)

	msg := &messaging.Message{
		Subject: messaging.SubjectDetectAnomaliesCreated,
		Data:    []byte("{not json"),
	}
	assert.NoError(t, handler(context.Background(), msg),
		"malformed payloads must not be redelivered")
}

func TestHandlerDropsEventWithoutID(t *testing.T) {
	repo := repository.NewMemoryRepository()
	handler := newHandler(t, &stubLedger{}, repo)

	data, err := json.Marshal(messaging.AnomalyCreatedEvent{})
	require.NoError(t, err)
	msg := &messaging.Message{Subject: messaging.SubjectDetectAnomaliesCreated, Data: data}
	assert.NoError(t, handler(context.Background(), msg))
}

func TestHandlerPropagatesAnchoringErrors(t *testing.T) {
	repo := repository.NewMemoryRepository()
	handler := newHandler(t, &stubLedger{submitErr: assert.AnError}, repo)

	err := handler(context.Background(), eventMessage(t, "anomaly-evt-2"))
	assert.Error(t, err, "submit failures must trigger redelivery")
}
