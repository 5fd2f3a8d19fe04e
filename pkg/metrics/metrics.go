package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec

	// Queue metrics
	QueueTransitions *prometheus.CounterVec
	QueueWaitMinutes prometheus.Histogram

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Broker metrics
	BrokerPublishes *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP responses with an error status",
		}, []string{"method", "path", "status"}),

		QueueTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "transitions_total",
			Help:      "Queue entry status transitions by target status and outcome",
		}, []string{"to", "outcome"}),
		QueueWaitMinutes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "wait_minutes",
			Help:      "Minutes between entering the queue and being seen",
			Buckets:   []float64{5, 10, 15, 30, 45, 60, 90, 120, 180, 240},
		}),

		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected requests at the access gate",
		}, []string{"reason"}),

		BrokerPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "publishes_total",
			Help:      "Event publishes by outcome",
		}, []string{"channel", "outcome"}),
	}
}

// NewTestMetrics registers against a throwaway registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "test")
}
