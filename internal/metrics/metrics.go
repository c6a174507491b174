package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for NotificationsTotal.
const (
	OutcomeProcessed     = "processed"
	OutcomeUnknownUser   = "unknown_user"
	OutcomeTokenMismatch = "token_mismatch"
	OutcomeIgnored       = "ignored"
	OutcomeNoCredentials = "no_credentials"
	OutcomeUpstreamError = "upstream_error"
	OutcomeInternalError = "internal_error"
	OutcomeMalformed     = "malformed"
	OutcomeMissingCoords = "missing_coordinates"
)

// Result label values for DemoResultsTotal.
const (
	DemoResultNoAction = "no_action"
	DemoResultInserted = "inserted"
	DemoResultFailed   = "failed"
	DemoResultPanicked = "panicked"
	DemoResultRejected = "insert_failed"
)

var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_notify_notifications_total",
			Help: "Total number of subscription notifications received",
		},
		[]string{"collection", "outcome"},
	)

	DemoResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_notify_demo_results_total",
			Help: "Outcome of offering a timeline item to a demo module",
		},
		[]string{"demo", "result"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mirror_notify_upstream_duration_seconds",
			Help:    "Duration of Mirror API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "method"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_notify_upstream_errors_total",
			Help: "Total number of failed Mirror API calls",
		},
		[]string{"collection", "method"},
	)

	LocationUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_notify_location_updates_total",
			Help: "Total number of user location records updated",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_notify_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_notify_event_publish_errors_total",
			Help: "Total number of side events that failed to publish",
		},
		[]string{"subject"},
	)
)
