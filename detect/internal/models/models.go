// Package models defines the detection service's request and response shapes.
package models

import (
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// TelemetrySubmission is the wire form of one telemetry reading posted to
// the detection API. Fields carries the data-type-specific measurements.
type TelemetrySubmission struct {
	RecordID string         `json:"record_id,omitempty"`
	OrgID    string         `json:"org_id"`
	DataType string         `json:"data_type"`
	Fields   map[string]any `json:"fields"`
	Source   string         `json:"source,omitempty"`
	// Version disambiguates resubmissions of the same record. Defaults to 1.
	Version int `json:"version,omitempty"`
	// Digest is an optional integrity digest verified against the privacy
	// codec before the record enters the pipeline.
	Digest string `json:"digest,omitempty"`
}

// QueryFilter narrows an anomaly listing.
type QueryFilter struct {
	OrgID       string
	DataType    models.DataType
	From        time.Time
	To          time.Time
	MinSeverity models.Severity
	Limit       int
	Offset      int
}

// QueryResult is one page of anomaly records, newest first.
type QueryResult struct {
	Records []models.AnomalyRecord `json:"records"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}
