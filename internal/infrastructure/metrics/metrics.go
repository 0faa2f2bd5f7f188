package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dialogue",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dialogue",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// TurnsTotal counts inbound turns by outcome
	// (replied, stopped, skipped, noop, error).
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dialogue",
			Subsystem: "bot",
			Name:      "turns_total",
			Help:      "Inbound turns processed",
		},
		[]string{"outcome"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dialogue",
			Subsystem: "bot",
			Name:      "messages_sent_total",
			Help:      "Outbound messages delivered",
		},
		[]string{"messaging_type"},
	)

	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dialogue",
			Subsystem: "bot",
			Name:      "delivery_failures_total",
			Help:      "Outbound delivery failures",
		},
		[]string{"class"},
	)

	PushBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dialogue",
			Subsystem: "push",
			Name:      "batch_size",
			Help:      "Users reached per scheduled push",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		},
		[]string{"job"},
	)

	UsersArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dialogue",
			Subsystem: "push",
			Name:      "users_archived_total",
			Help:      "Users moved to the archive list",
		},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
