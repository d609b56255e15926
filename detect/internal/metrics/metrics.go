package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission metrics
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_detect_records_total",
			Help: "Total number of telemetry records submitted",
		},
		[]string{"data_type", "status"},
	)

	// Pipeline metrics
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaintrace_detect_pipeline_duration_seconds",
			Help:    "End-to-end duration of one record through the scoring pipeline",
			Buckets: prometheus.DefBuckets,
		},
	)

	DetectorUnavailable = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_detect_detector_unavailable_total",
			Help: "Detector invocations that failed or timed out",
		},
		[]string{"detector"},
	)

	DegradedVerdicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaintrace_detect_degraded_verdicts_total",
			Help: "Verdicts produced with a partially or fully unavailable ensemble",
		},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_detect_verdicts_total",
			Help: "Verdicts stored, by severity tier",
		},
		[]string{"severity"},
	)

	// Storage metrics
	StoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaintrace_detect_store_duration_seconds",
			Help:    "Duration of anomaly store writes",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArchiveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaintrace_detect_archive_errors_total",
			Help: "Telemetry archive indexing failures",
		},
	)

	// Anchor publish metrics
	AnchorPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaintrace_detect_anchor_publish_errors_total",
			Help: "Failed anomaly-created event publishes",
		},
	)
)
