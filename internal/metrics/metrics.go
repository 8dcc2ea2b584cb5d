// Package metrics prometheus collectors for the sync pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SlotsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtsync_slots_fetched_total",
			Help: "Canonical slots produced by each provider",
		},
		[]string{"platform"},
	)

	AdapterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtsync_adapter_failures_total",
			Help: "Provider fetch-all calls that failed as a whole",
		},
		[]string{"platform"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtsync_upstream_requests_total",
			Help: "Upstream requests by provider and outcome (success, failure)",
		},
		[]string{"platform", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "courtsync_circuit_breaker_state",
			Help: "Upstream health breaker state (0=closed, 1=half-open, 2=open); requests are never rejected",
		},
		[]string{"platform"},
	)

	Transitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtsync_transitions_total",
			Help: "Slots detected moving from zero to positive availability",
		},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtsync_notifications_total",
			Help: "Notification emails by outcome (sent, failed)",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courtsync_run_duration_seconds",
			Help:    "Duration of pipeline runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"success"},
	)
)
