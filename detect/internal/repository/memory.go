package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
)

// MemoryRepository is the map-backed store used by tests and database-less
// development runs. Semantics mirror the postgres implementation.
type MemoryRepository struct {
	mu sync.RWMutex
	// keyed by (record_id, version)
	byKey map[recordKey]*models.AnomalyRecord
	byID  map[string]recordKey
}

type recordKey struct {
	recordID string
	version  int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byKey: make(map[recordKey]*models.AnomalyRecord),
		byID:  make(map[string]recordKey),
	}
}

func (r *MemoryRepository) Put(_ context.Context, rec *models.AnomalyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey{recordID: rec.Verdict.RecordID, version: rec.Verdict.Version}
	// Last write wins on the same key; drop the stale ID alias if the
	// anomaly ID changed across retries.
	if old, ok := r.byKey[key]; ok && old.ID != rec.ID {
		delete(r.byID, old.ID)
	}
	cp := *rec
	cp.Features = rec.Features.Clone()
	cp.Verdict.Scores = append([]models.DetectorScore(nil), rec.Verdict.Scores...)
	r.byKey[key] = &cp
	r.byID[rec.ID] = key
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.AnomalyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.byKey[key]
	return &cp, nil
}

func (r *MemoryRepository) GetByRecordVersion(_ context.Context, recordID string, version int) (*models.AnomalyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byKey[recordKey{recordID: recordID, version: version}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRepository) Query(_ context.Context, f dmodels.QueryFilter) ([]models.AnomalyRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.AnomalyRecord
	for _, rec := range r.byKey {
		if f.OrgID != "" && rec.OrgID != f.OrgID {
			continue
		}
		if f.DataType != "" && rec.DataType != f.DataType {
			continue
		}
		if !f.From.IsZero() && rec.Verdict.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.Verdict.CreatedAt.After(f.To) {
			continue
		}
		if f.MinSeverity != "" && !rec.Verdict.Severity.AtLeast(f.MinSeverity) {
			continue
		}
		matched = append(matched, *rec)
	}

	// id breaks created_at/version ties so pagination is a total order.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Verdict.CreatedAt.Equal(matched[j].Verdict.CreatedAt) {
			return matched[i].Verdict.CreatedAt.After(matched[j].Verdict.CreatedAt)
		}
		if matched[i].Verdict.Version != matched[j].Verdict.Version {
			return matched[i].Verdict.Version > matched[j].Verdict.Version
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
func (r *MemoryRepository) Close() error               { return nil }
