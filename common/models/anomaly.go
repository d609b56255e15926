package models

import (
	"fmt"
	"time"
)

// Severity is the discrete classification tier derived from ensemble confidence.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// ParseSeverity validates a severity string.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if _, ok := severityRank[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Rank returns the ordering of the tier (info lowest). Unknown tiers rank
// below info so they never satisfy a min-severity filter.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at least as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// DetectorKind tags the family a detector belongs to, so downstream score
// handling can be exhaustive rather than keyed on open-ended names.
type DetectorKind string

const (
	// KindDistance covers isolation/partition detectors scored by path distance.
	KindDistance DetectorKind = "distance"
	// KindBoundary covers boundary detectors such as one-class SVMs.
	KindBoundary DetectorKind = "boundary"
	// KindDensity covers density-clustering detectors such as DBSCAN.
	KindDensity DetectorKind = "density"
)

// DetectorScore is the raw output of one ensemble member for one record.
// Raw is signed and detector-specific; sign reflects the detector's internal
// orientation, not anomalousness direction. A failed detector is recorded
// with Unavailable set instead of a fabricated score.
type DetectorScore struct {
	Detector    string             `json:"detector"`
	Kind        DetectorKind       `json:"kind"`
	Raw         float64            `json:"raw"`
	SubScores   map[string]float64 `json:"sub_scores,omitempty"`
	Unavailable bool               `json:"unavailable,omitempty"`
	Err         string             `json:"error,omitempty"`
}

// AnomalyVerdict is the normalized outcome for one scored record. Verdicts
// are immutable; a correction is a new verdict for the same record ID with a
// higher Version.
type AnomalyVerdict struct {
	RecordID   string          `json:"record_id"`
	Version    int             `json:"version"`
	Confidence float64         `json:"confidence"`
	Severity   Severity        `json:"severity"`
	Scores     []DetectorScore `json:"scores"`
	Degraded   bool            `json:"degraded,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AnomalyRecord is the stored, queryable unit: a verdict plus its context and
// the inputs needed to explain it later (feature vector and model version).
type AnomalyRecord struct {
	ID           string         `json:"id"`
	OrgID        string         `json:"org_id"`
	DataType     DataType       `json:"data_type"`
	Verdict      AnomalyVerdict `json:"verdict"`
	Features     FeatureVector  `json:"features"`
	ModelVersion string         `json:"model_version"`
	TelemetryRef TelemetryRef   `json:"telemetry_ref"`
}

// FeatureContribution is one entry of a ranked explanation.
type FeatureContribution struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
	Direction    string  `json:"direction"` // "raises" or "lowers"
}

// Explanation is the per-feature attribution for one anomaly record,
// computed lazily against a specific model version.
type Explanation struct {
	AnomalyID     string                `json:"anomaly_id"`
	ModelVersion  string                `json:"model_version"`
	Contributions []FeatureContribution `json:"contributions"`
	Summary       string                `json:"summary"`
	ComputedAt    time.Time             `json:"computed_at"`
}

// AnchorStatus is the lifecycle state of a ledger anchor.
type AnchorStatus string

const (
	AnchorPending     AnchorStatus = "pending"
	AnchorConfirmed   AnchorStatus = "confirmed"
	AnchorUnreachable AnchorStatus = "unreachable"
)

// LedgerAnchor links an anomaly record to the distributed ledger. The ledger
// collaborator owns the canonical copy; this is lookup metadata only.
type LedgerAnchor struct {
	AnomalyID      string       `json:"anomaly_id"`
	Digest         string       `json:"digest"`
	TxRef          string       `json:"tx_ref,omitempty"`
	BlockRef       string       `json:"block_ref,omitempty"`
	ConsensusRatio float64      `json:"consensus_ratio,omitempty"`
	Status         AnchorStatus `json:"status"`
	Attempts       int          `json:"attempts"`
	AnchoredAt     time.Time    `json:"anchored_at,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
