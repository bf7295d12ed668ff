// Package metrics defines Prometheus metrics for hotel-price-tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hpt"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last liveness probe succeeded, 0 otherwise.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last readiness probe succeeded, 0 otherwise.",
	})
)

// Monitoring cycle metrics.
var (
	CheckCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "check_cycle_duration_seconds",
		Help:      "Duration of price check cycles in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	BookingsCheckedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_checked_total",
		Help:      "Total number of booking checks by outcome.",
	}, []string{"outcome"})

	BookingsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_skipped_total",
		Help:      "Total number of active bookings skipped by the eligibility policy.",
	}, []string{"reason"})

	CheckErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_errors_total",
		Help:      "Total number of per-booking check failures.",
	})
)

// Quote source metrics.
var (
	QuoteRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quote_requests_total",
		Help:      "Total cumulative quote API calls.",
	})

	QuoteUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quote_unavailable_total",
		Help:      "Total number of checks that produced no usable quote.",
	}, []string{"reason"})

	QuoteDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "quote_daily_usage",
		Help:      "Current daily quote API call count within the rolling 24-hour window.",
	})

	QuoteDailyLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quote_daily_limit_hits_total",
		Help:      "Total number of times the daily quote API limit was reached.",
	})
)

// Alert metrics.
var (
	AlertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_created_total",
		Help:      "Total number of price alerts created by severity.",
	}, []string{"severity"})

	AlertsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_suppressed_total",
		Help:      "Total number of drops not alerted because of user preferences.",
	})

	AlertsCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_cleaned_total",
		Help:      "Total number of historical alerts deleted by retention cleanup.",
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of notifications delivered by channel.",
	}, []string{"channel"})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures by channel.",
	}, []string{"channel"})
)

// Scheduler metrics.
var (
	SchedulerNextRunTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_run_timestamp",
		Help:      "Unix timestamp of the next scheduled run per job.",
	}, []string{"job_name"})

	SchedulerJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scheduler_job_duration_seconds",
		Help:      "Duration of scheduled job runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job_name", "status"})

	CheckQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "check_queue_depth",
		Help:      "Number of asynchronous check requests waiting to run.",
	})
)
