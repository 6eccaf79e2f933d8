package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_events_classified_total",
			Help: "Events whose classification changed",
		},
		[]string{"classification"},
	)

	ClassificationSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_classification_skipped_total",
			Help: "Events left unchanged by a bulk classification",
		},
		[]string{"reason"},
	)

	ClassificationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventdesk_classification_failures_total",
			Help: "Per-event persistence failures during bulk classification",
		},
	)

	FavoritesToggledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_favorites_toggled_total",
			Help: "Favorite toggles by resulting state",
		},
		[]string{"state"},
	)

	SearchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventdesk_search_errors_total",
			Help: "Searches that fell back to a partial predicate",
		},
	)

	// Job queue
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_jobs_enqueued_total",
			Help: "Jobs handed to the work queue",
		},
		[]string{"type"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_jobs_processed_total",
			Help: "Jobs executed by workers, by outcome",
		},
		[]string{"type", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdesk_job_duration_seconds",
			Help:    "Job execution time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	JobQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventdesk_job_queue_depth",
			Help: "Database queue rows by status",
		},
		[]string{"status"},
	)

	// Snapshot gauges refreshed by the collector
	ClassificationEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventdesk_classification_events",
			Help: "events_count per classification",
		},
		[]string{"classification"},
	)

	UnclassifiedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventdesk_unclassified_events",
			Help: "Events without a classification",
		},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_notifications_sent_total",
			Help: "Alert notifications delivered, by channel",
		},
		[]string{"channel"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdesk_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordClassified(classification string) {
	EventsClassifiedTotal.WithLabelValues(classification).Inc()
}

func RecordClassificationSkipped(reason string) {
	ClassificationSkippedTotal.WithLabelValues(reason).Inc()
}

func RecordJobEnqueued(jobType string) {
	JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
}

// RecordJobProcessed counts one execution; outcome is "ok", "retry" or "failed"
func RecordJobProcessed(jobType, outcome string, duration time.Duration) {
	JobsProcessedTotal.WithLabelValues(jobType, outcome).Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
