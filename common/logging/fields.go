package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService   = "service"
	FieldOrgID     = "org_id"
	FieldRecordID  = "record_id"
	FieldAnomalyID = "anomaly_id"
	FieldDataType  = "data_type"
	FieldDetector  = "detector"
	FieldSeverity  = "severity"
	FieldTxRef     = "tx_ref"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// OrgID returns a slog attribute for the organization ID.
func OrgID(id string) slog.Attr {
	return slog.String(FieldOrgID, id)
}

// RecordID returns a slog attribute for a telemetry record ID.
func RecordID(id string) slog.Attr {
	return slog.String(FieldRecordID, id)
}

// AnomalyID returns a slog attribute for an anomaly record ID.
func AnomalyID(id string) slog.Attr {
	return slog.String(FieldAnomalyID, id)
}

// DataType returns a slog attribute for a telemetry data-type tag.
func DataType(dt string) slog.Attr {
	return slog.String(FieldDataType, dt)
}

// Detector returns a slog attribute for an ensemble detector name.
func Detector(name string) slog.Attr {
	return slog.String(FieldDetector, name)
}

// Severity returns a slog attribute for a verdict severity tier.
func Severity(sev string) slog.Attr {
	return slog.String(FieldSeverity, sev)
}

// TxRef returns a slog attribute for a ledger transaction reference.
func TxRef(ref string) slog.Attr {
	return slog.String(FieldTxRef, ref)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
