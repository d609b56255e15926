package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// MemoryRepository is an in-process anchor store for development and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	anchors map[string]*models.LedgerAnchor
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{anchors: make(map[string]*models.LedgerAnchor)}
}

func (r *MemoryRepository) Close() error               { return nil }
func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) Upsert(_ context.Context, a *models.LedgerAnchor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *a
	cp.UpdatedAt = time.Now().UTC()
	r.anchors[a.AnomalyID] = &cp
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, anomalyID string) (*models.LedgerAnchor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.anchors[anomalyID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) ListPending(_ context.Context, limit int) ([]models.LedgerAnchor, error) {
	if limit <= 0 {
		limit = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.LedgerAnchor
	for _, a := range r.anchors {
		if a.Status == models.AnchorPending {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
