package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name      string
		attr      slog.Attr
		wantKey   string
		wantValue string
	}{
		{"service", Service("detect"), FieldService, "detect"},
		{"org id", OrgID("org-7"), FieldOrgID, "org-7"},
		{"record id", RecordID("rec-42"), FieldRecordID, "rec-42"},
		{"anomaly id", AnomalyID("an-1"), FieldAnomalyID, "an-1"},
		{"data type", DataType("temperature"), FieldDataType, "temperature"},
		{"detector", Detector("isolation_forest"), FieldDetector, "isolation_forest"},
		{"severity", Severity("high"), FieldSeverity, "high"},
		{"tx ref", TxRef("0xabc"), FieldTxRef, "0xabc"},
		{"method", Method("POST"), FieldMethod, "POST"},
		{"path", Path("/api/v1/telemetry"), FieldPath, "/api/v1/telemetry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if got := tt.attr.Value.String(); got != tt.wantValue {
				t.Errorf("value = %q, want %q", got, tt.wantValue)
			}
		})
	}
}

func TestStatusAndDuration(t *testing.T) {
	if attr := Status(202); attr.Value.Int64() != 202 {
		t.Errorf("status value = %d, want 202", attr.Value.Int64())
	}
	if attr := Duration(350); attr.Value.Int64() != 350 {
		t.Errorf("duration value = %d, want 350", attr.Value.Int64())
	}
}

func TestErrorField(t *testing.T) {
	attr := Error(errors.New("ensemble unavailable"))
	if attr.Key != FieldError {
		t.Errorf("key = %q, want %q", attr.Key, FieldError)
	}
	if attr.Value.String() != "ensemble unavailable" {
		t.Errorf("value = %q", attr.Value.String())
	}
}
