package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all client-level metrics (not application-specific)
type Metrics struct {
	// Session metrics
	SessionsOpen      prometheus.Gauge
	SubscribersActive prometheus.Gauge
	QueryablesActive  prometheus.Gauge

	// Data plane metrics
	PublishesTotal   *prometheus.CounterVec
	SamplesDelivered prometheus.Counter
	CallbackPanics   prometheus.Counter

	// Query plane metrics
	QueriesTotal  prometheus.Counter
	RepliesTotal  prometheus.Counter
	QueryDuration prometheus.Histogram

	// Engine metrics
	EngineConnected  prometheus.Gauge
	EngineReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all client metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "keystream",
				Subsystem: "session",
				Name:      "open",
				Help:      "Number of currently open sessions",
			},
		),

		SubscribersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "keystream",
				Subsystem: "session",
				Name:      "subscribers_active",
				Help:      "Number of currently active subscribers",
			},
		),

		QueryablesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "keystream",
				Subsystem: "session",
				Name:      "queryables_active",
				Help:      "Number of currently active queryables",
			},
		),

		PublishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keystream",
				Subsystem: "data",
				Name:      "publishes_total",
				Help:      "Total number of samples published",
			},
			[]string{"kind"},
		),

		SamplesDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "keystream",
				Subsystem: "data",
				Name:      "samples_delivered_total",
				Help:      "Total number of samples delivered to subscriber callbacks",
			},
		),

		CallbackPanics: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "keystream",
				Subsystem: "data",
				Name:      "callback_panics_total",
				Help:      "Total number of panics recovered from user callbacks",
			},
		),

		QueriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "keystream",
				Subsystem: "query",
				Name:      "total",
				Help:      "Total number of queries issued",
			},
		),

		RepliesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "keystream",
				Subsystem: "query",
				Name:      "replies_total",
				Help:      "Total number of replies received",
			},
		),

		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "keystream",
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Query round-trip duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		EngineConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "keystream",
				Subsystem: "engine",
				Name:      "connected",
				Help:      "Engine connection status (0=disconnected, 1=connected)",
			},
		),

		EngineReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "keystream",
				Subsystem: "engine",
				Name:      "reconnects_total",
				Help:      "Total number of engine reconnections",
			},
		),
	}
}
