package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

func record(dt models.DataType, fields map[string]any) *models.TelemetryRecord {
	return &models.TelemetryRecord{
		RecordID:   "rec-1",
		OrgID:      "org-1",
		DataType:   dt,
		Fields:     fields,
		IngestedAt: time.Now(),
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	e, err := NewEngine(config.PreRulesConfig{Rules: []config.PreRule{
		{DataType: "temperature", Field: "temp_c", Op: "gt", Value: 8, Severity: "critical"},
		{DataType: "temperature", Field: "temp_c", Op: "gt", Value: 6, Severity: "medium"},
	}})
	require.NoError(t, err)

	assert.Equal(t, models.SeverityCritical, e.Evaluate(record(models.DataTypeTemperature, map[string]any{"temp_c": 9.0})))
	assert.Equal(t, models.SeverityMedium, e.Evaluate(record(models.DataTypeTemperature, map[string]any{"temp_c": 7.0})))
	assert.Equal(t, models.Severity(""), e.Evaluate(record(models.DataTypeTemperature, map[string]any{"temp_c": 4.0})))
}

func TestEvaluateSkipsOtherDataTypes(t *testing.T) {
	e, err := NewEngine(config.PreRulesConfig{Rules: []config.PreRule{
		{DataType: "temperature", Field: "temp_c", Op: "gt", Value: 8, Severity: "high"},
	}})
	require.NoError(t, err)

	assert.Equal(t, models.Severity(""), e.Evaluate(record(models.DataTypeHumidity, map[string]any{"temp_c": 50.0})))
}

func TestEvaluateOps(t *testing.T) {
	e, err := NewEngine(config.PreRulesConfig{Rules: []config.PreRule{
		{DataType: "location", Field: "speed_kmh", Op: "lt", Value: 1, Severity: "low"},
		{DataType: "location", Field: "speed_kmh", Op: "eq", Value: 200, Severity: "high"},
	}})
	require.NoError(t, err)

	assert.Equal(t, models.SeverityLow, e.Evaluate(record(models.DataTypeLocation, map[string]any{"speed_kmh": 0.0})))
	assert.Equal(t, models.SeverityHigh, e.Evaluate(record(models.DataTypeLocation, map[string]any{"speed_kmh": 200.0})))
}

func TestEvaluateMissingFieldNoMatch(t *testing.T) {
	e, err := NewEngine(config.PreRulesConfig{Rules: []config.PreRule{
		{DataType: "temperature", Field: "pressure", Op: "gt", Value: 1, Severity: "high"},
	}})
	require.NoError(t, err)

	assert.Equal(t, models.Severity(""), e.Evaluate(record(models.DataTypeTemperature, map[string]any{"temp_c": 4.0})))
}

func TestNewEngineRejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		rule config.PreRule
	}{
		{"bad data type", config.PreRule{DataType: "sound", Field: "db", Op: "gt", Value: 1, Severity: "high"}},
		{"bad severity", config.PreRule{DataType: "temperature", Field: "temp_c", Op: "gt", Value: 1, Severity: "urgent"}},
		{"bad op", config.PreRule{DataType: "temperature", Field: "temp_c", Op: "ge", Value: 1, Severity: "high"}},
		{"missing field", config.PreRule{DataType: "temperature", Op: "gt", Value: 1, Severity: "high"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(config.PreRulesConfig{Rules: []config.PreRule{tt.rule}})
			assert.Error(t, err)
		})
	}
}
