// Package repository stores and queries anomaly records. The postgres
// implementation is canonical; the in-memory implementation backs tests and
// database-less development.
package repository

import (
	"context"
	"errors"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("anomaly record not found")

// Repository is the anomaly record store.
type Repository interface {
	// Put stores a record, idempotently: writing the same (record_id,
	// version) twice converges on the last write instead of erroring.
	Put(ctx context.Context, rec *models.AnomalyRecord) error

	// GetByID fetches one record by anomaly ID.
	GetByID(ctx context.Context, id string) (*models.AnomalyRecord, error)

	// GetByRecordVersion fetches the verdict for a specific record version.
	GetByRecordVersion(ctx context.Context, recordID string, version int) (*models.AnomalyRecord, error)

	// Query lists records newest-first under the filter, with the total
	// match count for pagination.
	Query(ctx context.Context, filter dmodels.QueryFilter) ([]models.AnomalyRecord, int, error)

	Ping(ctx context.Context) error
	Close() error
}
