// Package repository provides read access to stored anomaly records for the
// explanation service. The detection service owns writes; this side only
// loads records by ID.
package repository

import (
	"context"
	"errors"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// ErrNotFound indicates the requested anomaly record does not exist.
var ErrNotFound = errors.New("anomaly record not found")

// Reader loads anomaly records.
type Reader interface {
	GetByID(ctx context.Context, id string) (*models.AnomalyRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
