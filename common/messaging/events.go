package messaging

import (
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// AnomalyCreatedEvent is published on SubjectDetectAnomaliesCreated whenever
// the detection service stores a verdict. The anchor service consumes it to
// drive ledger anchoring asynchronously.
type AnomalyCreatedEvent struct {
	Anomaly   models.AnomalyRecord `json:"anomaly"`
	EmittedAt time.Time            `json:"emitted_at"`
}

// AnchorResultEvent is published on SubjectAnchorConfirmed or
// SubjectAnchorFailed once an anchoring attempt resolves.
type AnchorResultEvent struct {
	AnomalyID string              `json:"anomaly_id"`
	Status    models.AnchorStatus `json:"status"`
	TxRef     string              `json:"tx_ref,omitempty"`
	EmittedAt time.Time           `json:"emitted_at"`
}
