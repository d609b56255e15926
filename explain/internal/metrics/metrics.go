package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExplanationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaintrace_explain_explanations_total",
			Help: "Explanation requests, by outcome",
		},
		[]string{"status"},
	)

	ComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chaintrace_explain_compute_duration_seconds",
			Help:    "Duration of attribution computation (cache misses only)",
			Buckets: prometheus.DefBuckets,
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaintrace_explain_cache_hits_total",
			Help: "Explanations served from the redis cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chaintrace_explain_cache_misses_total",
			Help: "Explanations recomputed after a cache miss",
		},
	)
)
