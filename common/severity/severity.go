// Package severity maps raw ensemble scores onto the confidence scale and the
// discrete severity tiers. The mapping is pure and total: every score set
// classifies, with a documented fallback for degenerate input, so the
// classifier itself never returns an error.
package severity

import (
	"math"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// Thresholds is the confidence-to-tier table. Bounds are inclusive to the
// higher tier: confidence exactly at a bound takes that bound's tier.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// DefaultThresholds is the shipped threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.8, Medium: 0.6, Low: 0.4}
}

// Tier maps a confidence to its severity tier.
func (t Thresholds) Tier(confidence float64) models.Severity {
	switch {
	case confidence >= t.High:
		return models.SeverityHigh
	case confidence >= t.Medium:
		return models.SeverityMedium
	case confidence >= t.Low:
		return models.SeverityLow
	default:
		return models.SeverityInfo
	}
}

// fallbackConfidence pins each out-of-band severity to a representative
// confidence so downstream consumers see a single consistent scale.
var fallbackConfidence = map[models.Severity]float64{
	models.SeverityCritical: 0.9,
	models.SeverityHigh:     0.8,
	models.SeverityMedium:   0.5,
	models.SeverityLow:      0.2,
}

// Classifier derives verdicts from detector score sets.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier builds a classifier with the given threshold table.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Normalize squashes one raw detector score to the [0,1] confidence scale:
// logistic over the magnitude, so 0 maps to 0.5 and large magnitudes
// saturate toward 1.
func Normalize(raw float64) float64 {
	x := math.Abs(raw)
	c := 1 / (1 + math.Exp(-2*x))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Classify produces the verdict for one scored record.
//
// Confidence is the maximum normalized score across successful detectors. The
// fallback path engages only for degenerate ensembles: no successful
// detectors, every successful raw score exactly zero, or a non-finite
// maximum. In that case ruleSeverity (from the out-of-band pre-classification
// rules) selects the pinned confidence; with no rule severity the record
// classifies info/0. degraded marks verdicts whose ensemble was partially or
// fully unavailable.
func (c *Classifier) Classify(recordID string, version int, scores []models.DetectorScore, ruleSeverity models.Severity, degraded bool) models.AnomalyVerdict {
	confidence, ok := c.confidence(scores)
	sev := c.thresholds.Tier(confidence)

	if !ok {
		confidence, sev = c.fallback(ruleSeverity)
	}

	return models.AnomalyVerdict{
		RecordID:   recordID,
		Version:    version,
		Confidence: confidence,
		Severity:   sev,
		Scores:     scores,
		Degraded:   degraded,
		CreatedAt:  time.Now().UTC(),
	}
}

// confidence computes the max normalized score. ok is false for the
// degenerate cases that route to the fallback table.
func (c *Classifier) confidence(scores []models.DetectorScore) (float64, bool) {
	succeeded := 0
	allZero := true
	best := math.Inf(-1)

	for _, s := range scores {
		if s.Unavailable {
			continue
		}
		succeeded++
		if s.Raw != 0 {
			allZero = false
		}
		if n := Normalize(s.Raw); n > best {
			best = n
		}
	}

	if succeeded == 0 || allZero {
		return 0, false
	}
	if best == 0 || math.IsNaN(best) || math.IsInf(best, 0) {
		return 0, false
	}
	return best, true
}

func (c *Classifier) fallback(ruleSeverity models.Severity) (float64, models.Severity) {
	if conf, ok := fallbackConfidence[ruleSeverity]; ok {
		return conf, ruleSeverity
	}
	return 0, models.SeverityInfo
}
