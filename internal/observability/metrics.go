package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for provider requests.
const (
	OutcomeSuccess       = "success"
	OutcomeNoClearResult = "no_clear_result"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeError         = "error"
)

// Metrics holds the Prometheus counters, histograms, and gauges for geocoding sessions.
type Metrics struct {
	// Provider metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,no_clear_result,quota_exceeded,error}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
	GeocodeCache       *prometheus.CounterVec   // labels: provider, result={hit,miss}

	// Session metrics.
	SessionRecords  *prometheus.CounterVec // labels: outcome={succeeded,failed,skipped}
	SessionRunning  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geocode",
			Name:      "provider_requests_total",
			Help:      "Geocoding provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geocode",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider HTTP request duration in seconds, excluding rate-limit delay.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geocode",
			Name:      "cache_lookups_total",
			Help:      "Resolution cache lookups by provider and result.",
		}, []string{"provider", "result"}),
		SessionRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geocode",
			Name:      "session_records_total",
			Help:      "Records processed by geocoding sessions, by outcome.",
		}, []string{"outcome"}),
		SessionRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geocode",
			Name:      "session_running",
			Help:      "1 while a geocoding session is processing records, 0 otherwise.",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geocode",
			Name:      "sessions_started_total",
			Help:      "Geocoding sessions started.",
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geocode",
			Name:      "session_duration_seconds",
			Help:      "Wall time from session start to finish.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
		}),
	}

	prometheus.MustRegister(
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.GeocodeCache,
		m.SessionRecords,
		m.SessionRunning,
		m.SessionsStarted,
		m.SessionDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "geocode", Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "geocode", Name: "provider_request_duration_seconds"}, []string{"provider"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "geocode", Name: "cache_lookups_total"}, []string{"provider", "result"}),
		SessionRecords:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "geocode", Name: "session_records_total"}, []string{"outcome"}),
		SessionRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "geocode", Name: "session_running"}),
		SessionsStarted:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geocode", Name: "sessions_started_total"}),
		SessionDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "geocode", Name: "session_duration_seconds"}),
	}
}
