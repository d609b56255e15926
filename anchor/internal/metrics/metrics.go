package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnchorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_anchor_anchors_total",
			Help: "Anchor attempts, by resulting status",
		},
		[]string{"status"},
	)

	SubmitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaintrace_anchor_submit_duration_seconds",
			Help:    "Duration of ledger digest submissions",
			Buckets: prometheus.DefBuckets,
		},
	)

	ConfirmDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaintrace_anchor_confirm_duration_seconds",
			Help:    "Time from submission to the configured confirmation count",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaintrace_anchor_retries_total",
			Help: "Pending anchors re-submitted by the retry scheduler",
		},
	)

	UnreachableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaintrace_anchor_unreachable_total",
			Help: "Anchors abandoned after exhausting the retry budget",
		},
	)
)
