// Package normalizer converts raw telemetry submissions into canonical
// telemetry records and deterministic feature vectors. Each data type has its
// own validation and feature-extraction rule; unknown data types are rejected,
// never silently passed through.
package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
)

// ValidationError describes a rejected submission. It maps to HTTP 400 and is
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid telemetry: field %q %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Normalizer validates one data type and derives its feature vector.
type Normalizer interface {
	DataType() models.DataType
	Normalize(ctx context.Context, sub *dmodels.TelemetrySubmission) (*models.TelemetryRecord, models.FeatureVector, error)
}

// Registry routes submissions to the normalizer for their data type.
type Registry struct {
	items map[models.DataType]Normalizer
}

// NewRegistry constructs a registry with the provided normalizers.
func NewRegistry(items ...Normalizer) *Registry {
	r := &Registry{items: make(map[models.DataType]Normalizer, len(items))}
	for _, n := range items {
		r.items[n.DataType()] = n
	}
	return r
}

// DefaultRegistry returns a registry covering all supported data types.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&temperatureNormalizer{},
		&humidityNormalizer{},
		&locationNormalizer{},
		&mixedNormalizer{},
	)
}

// Normalize validates the submission envelope, routes by data type, and
// returns the canonical record plus its feature vector.
func (r *Registry) Normalize(ctx context.Context, sub *dmodels.TelemetrySubmission) (*models.TelemetryRecord, models.FeatureVector, error) {
	if sub.OrgID == "" {
		return nil, models.FeatureVector{}, invalid("org_id", "is required")
	}
	dt, err := models.ParseDataType(sub.DataType)
	if err != nil {
		return nil, models.FeatureVector{}, invalid("data_type", fmt.Sprintf("unknown value %q", sub.DataType))
	}
	n, ok := r.items[dt]
	if !ok {
		return nil, models.FeatureVector{}, invalid("data_type", fmt.Sprintf("no normalizer for %q", dt))
	}
	if len(sub.Fields) == 0 {
		return nil, models.FeatureVector{}, invalid("fields", "is required")
	}
	return n.Normalize(ctx, sub)
}

// newRecord builds the canonical record shared by all normalizers.
func newRecord(sub *dmodels.TelemetrySubmission, dt models.DataType, fields map[string]any) *models.TelemetryRecord {
	id := sub.RecordID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	return &models.TelemetryRecord{
		RecordID:   id,
		OrgID:      sub.OrgID,
		DataType:   dt,
		Fields:     fields,
		Source:     sub.Source,
		IngestedAt: time.Now().UTC(),
	}
}

// numField extracts a numeric field, accepting the types JSON and YAML
// decoders produce.
func numField(fields map[string]any, name string) (float64, bool) {
	v, ok := fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func strField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
