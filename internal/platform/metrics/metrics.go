// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_upstream_requests_total",
			Help: "Calls made to the commerce platform API",
		},
		[]string{"operation", "outcome"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reservation_upstream_request_duration_seconds",
			Help:    "Latency of calls made to the commerce platform API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	availabilityFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_availability_fallbacks_total",
			Help: "Availability lookups that degraded to an empty result",
		},
		[]string{"kind"},
	)

	supersededFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_superseded_slot_fetches_total",
			Help: "Slot fetches discarded because a newer fetch for the same session started",
		},
	)

	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_submissions_total",
			Help: "Reservation submissions by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)
)

// ObserveUpstream records one upstream call.
func ObserveUpstream(operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	upstreamRequests.WithLabelValues(operation, outcome).Inc()
	upstreamDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// AvailabilityFallback records an availability lookup that returned an empty result after a failure.
func AvailabilityFallback(kind string) {
	availabilityFallbacks.WithLabelValues(kind).Inc()
}

// SupersededFetch records a discarded slot fetch.
func SupersededFetch() {
	supersededFetches.Inc()
}

// Submission records the outcome of a booking or change submission.
func Submission(flow, outcome string) {
	submissions.WithLabelValues(flow, outcome).Inc()
}
