// Package metrics exposes Prometheus instrumentation for the evaluation
// workflow: detail fetch outcomes, scoring service calls and session
// transitions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detailFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalbridge_detail_fetch_total",
			Help: "Total number of trace detail fetches by final outcome",
		},
		[]string{"outcome"},
	)

	detailFetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evalbridge_detail_fetch_retries_total",
			Help: "Total number of detail fetch retry attempts",
		},
	)

	normalizationWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalbridge_normalization_warnings_total",
			Help: "Total number of normalization fallbacks applied, by field",
		},
		[]string{"field"},
	)

	scoringRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalbridge_scoring_requests_total",
			Help: "Total number of scoring service requests",
		},
		[]string{"operation", "kind", "status"},
	)

	scoringLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evalbridge_scoring_latency_seconds",
			Help:    "Scoring service request latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "kind"},
	)

	sessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalbridge_session_transitions_total",
			Help: "Total number of evaluation session phase transitions",
		},
		[]string{"phase"},
	)
)

// RecordDetailFetch records the final outcome of one candidate fetch
func RecordDetailFetch(outcome string) {
	detailFetchTotal.WithLabelValues(outcome).Inc()
}

// RecordDetailFetchRetry records one retry attempt
func RecordDetailFetchRetry() {
	detailFetchRetries.Inc()
}

// RecordNormalizationWarning records one applied normalization fallback
func RecordNormalizationWarning(field string) {
	normalizationWarnings.WithLabelValues(field).Inc()
}

// RecordScoringRequest records a scoring service call and its latency
func RecordScoringRequest(operation, kind, status string, started time.Time) {
	scoringRequests.WithLabelValues(operation, kind, status).Inc()
	scoringLatency.WithLabelValues(operation, kind).Observe(time.Since(started).Seconds())
}

// RecordSessionTransition records an evaluation session phase transition
func RecordSessionTransition(phase string) {
	sessionTransitions.WithLabelValues(phase).Inc()
}
