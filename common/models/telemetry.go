// Package models defines the shared data model for the ChainTrace pipeline:
// telemetry records, feature vectors, detector scores, anomaly verdicts and
// ledger anchors. All services exchange these types.
package models

import (
	"fmt"
	"sort"
	"time"
)

// DataType tags a telemetry record with the kind of supply-chain measurement
// it carries. Each data type has its own validation and feature-extraction rule.
type DataType string

const (
	DataTypeTemperature DataType = "temperature"
	DataTypeHumidity    DataType = "humidity"
	DataTypeLocation    DataType = "location"
	DataTypeMixed       DataType = "mixed"
)

// ParseDataType validates a data-type tag.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case DataTypeTemperature, DataTypeHumidity, DataTypeLocation, DataTypeMixed:
		return DataType(s), nil
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// TelemetryRecord is the canonical form of one ingested supply-chain reading.
// It is immutable once produced by the normalizer.
type TelemetryRecord struct {
	RecordID   string         `json:"record_id"`
	OrgID      string         `json:"org_id"`
	DataType   DataType       `json:"data_type"`
	Fields     map[string]any `json:"fields"`
	Source     string         `json:"source,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// TelemetryRef is a back-reference to an archived telemetry record. The
// archive owns the canonical copy; anomaly records only point at it.
type TelemetryRef struct {
	Index    string `json:"index"`
	RecordID string `json:"record_id"`
}

// FeatureVector is an ordered feature-name/value mapping derived
// deterministically from a TelemetryRecord. Vectors are recomputed per
// record, never mutated in place.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// NewFeatureVector builds a vector from a name->value map, ordering features
// by name so derivation is deterministic regardless of map iteration.
func NewFeatureVector(features map[string]float64) FeatureVector {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]float64, len(names))
	for i, name := range names {
		values[i] = features[name]
	}
	return FeatureVector{Names: names, Values: values}
}

// Len returns the number of features.
func (v FeatureVector) Len() int { return len(v.Names) }

// Get returns the value for a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	out := FeatureVector{
		Names:  make([]string, len(v.Names)),
		Values: make([]float64, len(v.Values)),
	}
	copy(out.Names, v.Names)
	copy(out.Values, v.Values)
	return out
}

// SameShape reports whether two vectors cover the same ordered feature set.
func (v FeatureVector) SameShape(other FeatureVector) bool {
	if len(v.Names) != len(other.Names) {
		return false
	}
	for i := range v.Names {
		if v.Names[i] != other.Names[i] {
			return false
		}
	}
	return true
}
