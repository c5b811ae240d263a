package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "review"

// Metrics holds the Prometheus counters, histograms, and gauges for the review
// workflow.
type Metrics struct {
	Transitions        *prometheus.CounterVec // labels: state
	ValidationFailures *prometheus.CounterVec // labels: field
	PendingEvents      prometheus.Gauge

	// Persistence metrics.
	PersistAttempts prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram

	// Transition audit metrics.
	AuditPublished *prometheus.CounterVec // labels: outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all review metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewUnregisteredMetrics creates Metrics that no registry collects, for
// components built without an explicit Metrics.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions applied, by target state.",
		}, []string{"state"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Reject attempts refused for incomplete data, by first missing field.",
		}, []string{"field"}),
		PendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_events",
			Help:      "Events awaiting review at the last pending-list load.",
		}),
		PersistAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_attempts_total",
			Help:      "State writes attempted against the gateway, retries included.",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "State writes that failed after every retry.",
		}),
		PersistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Duration of an awaited state write, retries included.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AuditPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_published_total",
			Help:      "Transition audit messages by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when epicenter geocoding is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Transitions,
		m.ValidationFailures,
		m.PendingEvents,
		m.PersistAttempts,
		m.PersistFailures,
		m.PersistDuration,
		m.AuditPublished,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
