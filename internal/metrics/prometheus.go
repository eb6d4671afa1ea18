package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"route", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "notify_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

var NotificationsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_notifications_created_total",
		Help: "Notifications inserted into the queue",
	},
	[]string{"type", "priority"},
)

var NotificationsDuplicateTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_notifications_duplicate_total",
		Help: "Candidates skipped because their dedup key already exists",
	},
	[]string{"type"},
)

var NotificationsRejectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_notifications_rejected_total",
		Help: "Candidates rejected by validation or store errors",
	},
	[]string{"reason"},
)

var EvaluatorRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_evaluator_runs_total",
		Help: "Evaluator invocations by outcome",
	},
	[]string{"evaluator", "result"},
)

var EvaluatorDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "notify_evaluator_duration_seconds",
		Help:    "Time spent in a single evaluator call",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"evaluator"},
)

var TriggerRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_trigger_runs_total",
		Help: "Scheduler runs by kind and final status",
	},
	[]string{"kind", "status"},
)

var DeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_deliveries_total",
		Help: "Delivery attempts by channel and outcome",
	},
	[]string{"channel", "status"},
)

var DeliveryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "notify_delivery_duration_seconds",
		Help:    "Time taken to hand a notification to its channel provider",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"channel"},
)

var EventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_domain_events_total",
		Help: "Domain events handled by the realtime trigger registry",
	},
	[]string{"event", "result"},
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HttpRequestsTotal,
			HttpRequestDuration,
			NotificationsCreatedTotal,
			NotificationsDuplicateTotal,
			NotificationsRejectedTotal,
			EvaluatorRunsTotal,
			EvaluatorDuration,
			TriggerRunsTotal,
			DeliveriesTotal,
			DeliveryDuration,
			EventsTotal,
		)
	})
}
