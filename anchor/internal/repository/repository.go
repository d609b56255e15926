// Package repository persists ledger anchors. One anchor per anomaly record;
// the anomaly ID is the key.
package repository

import (
	"context"
	"errors"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// ErrNotFound indicates no anchor exists for the anomaly.
var ErrNotFound = errors.New("anchor not found")

// Repository stores ledger anchors.
type Repository interface {
	// Upsert writes the anchor, replacing any prior state for the anomaly.
	Upsert(ctx context.Context, a *models.LedgerAnchor) error
	// Get returns the anchor for an anomaly.
	Get(ctx context.Context, anomalyID string) (*models.LedgerAnchor, error)
	// ListPending returns anchors still awaiting confirmation, oldest first.
	ListPending(ctx context.Context, limit int) ([]models.LedgerAnchor, error)
	Ping(ctx context.Context) error
	Close() error
}
