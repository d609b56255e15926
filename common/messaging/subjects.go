// Package messaging defines standard subject names for the ChainTrace message bus.
package messaging

// Subject constants for the ChainTrace message bus.
// Follow the pattern: {domain}.{resource}.{event}
const (
	// SubjectDetectAnomaliesCreated is published by the detect service after an
	// anomaly record has been persisted; the anchor service consumes it.
	SubjectDetectAnomaliesCreated = "detect.anomalies.created"

	// SubjectAnchorConfirmed is published by the anchor service once the ledger
	// reports the configured number of confirmations for an anchor.
	SubjectAnchorConfirmed = "anchor.anchors.confirmed"

	// SubjectAnchorFailed is published when an anchor submission exhausts its
	// retry budget; consumers can alert operators.
	SubjectAnchorFailed = "anchor.anchors.failed"
)

// Queue group names for load-balanced consumers.
// Workers in the same queue group share messages (each message processed once).
const (
	QueueAnchorWorkers = "anchor-workers" // Pool of ledger anchoring workers
)
