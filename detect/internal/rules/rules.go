// Package rules evaluates the ordered out-of-band pre-classification rules
// against canonical telemetry records. The matched severity feeds the
// classifier's fallback path when the ensemble signal is degenerate.
package rules

import (
	"fmt"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// Rule is one static predicate on a canonical field.
type Rule struct {
	DataType models.DataType
	Field    string
	Op       string // gt, lt, eq
	Value    float64
	Severity models.Severity
}

// Engine holds the ordered rule list. First match wins.
type Engine struct {
	rules []Rule
}

// NewEngine validates and compiles configured rules.
func NewEngine(cfg config.PreRulesConfig) (*Engine, error) {
	rules := make([]Rule, 0, len(cfg.Rules))
	for i, rc := range cfg.Rules {
		dt, err := models.ParseDataType(rc.DataType)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		sev, err := models.ParseSeverity(rc.Severity)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		switch rc.Op {
		case "gt", "lt", "eq":
		default:
			return nil, fmt.Errorf("rule %d: unknown op %q", i, rc.Op)
		}
		if rc.Field == "" {
			return nil, fmt.Errorf("rule %d: missing field", i)
		}
		rules = append(rules, Rule{
			DataType: dt,
			Field:    rc.Field,
			Op:       rc.Op,
			Value:    rc.Value,
			Severity: sev,
		})
	}
	return &Engine{rules: rules}, nil
}

// Evaluate returns the severity of the first matching rule, or the empty
// severity when nothing matches.
func (e *Engine) Evaluate(rec *models.TelemetryRecord) models.Severity {
	for _, r := range e.rules {
		if r.DataType != rec.DataType {
			continue
		}
		v, ok := numeric(rec.Fields[r.Field])
		if !ok {
			continue
		}
		if matches(r.Op, v, r.Value) {
			return r.Severity
		}
	}
	return ""
}

func matches(op string, got, want float64) bool {
	switch op {
	case "gt":
		return got > want
	case "lt":
		return got < want
	case "eq":
		return got == want
	}
	return false
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
