// Package observability holds the Prometheus collectors for the dashboard.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Report fetch metrics.
	ReportFetches       *prometheus.CounterVec // labels: outcome={success,api_error,network_error,cancelled,invalid,stale}
	ReportFetchDuration prometheus.Histogram

	// Map view metrics.
	MapEvents        *prometheus.CounterVec // labels: type={mounted,loaded,failed,filter,select,clear,click,unmount}
	MapTransitions   *prometheus.CounterVec // labels: from, to
	ActiveMapViews   prometheus.Gauge
	SessionEvictions prometheus.Counter

	// Chart rendering.
	ChartRenders *prometheus.CounterVec // labels: kind={pie,line}, outcome={success,placeholder,error}

	// HTTP surface.
	HTTPRequests       *prometheus.CounterVec // labels: method, code
	HTTPDuration       prometheus.Histogram
	RateLimited        prometheus.Counter
	SuspiciousRequests prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := NewMetricsForTesting()
	reg.MustRegister(
		m.ReportFetches,
		m.ReportFetchDuration,
		m.MapEvents,
		m.MapTransitions,
		m.ActiveMapViews,
		m.SessionEvictions,
		m.ChartRenders,
		m.HTTPRequests,
		m.HTTPDuration,
		m.RateLimited,
		m.SuspiciousRequests,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "report_fetches_total",
			Help:      "Upstream report fetches by outcome.",
		}, []string{"outcome"}),
		ReportFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "delhidash",
			Name:      "report_fetch_duration_seconds",
			Help:      "Upstream report request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		MapEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "map_events_total",
			Help:      "Browser map events by type.",
		}, []string{"type"}),
		MapTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "map_phase_transitions_total",
			Help:      "Map view lifecycle transitions.",
		}, []string{"from", "to"}),
		ActiveMapViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "delhidash",
			Name:      "map_views_active",
			Help:      "Map view sessions currently held in memory.",
		}),
		SessionEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "session_evictions_total",
			Help:      "View sessions dropped by expiry, capacity or explicit unmount.",
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "chart_renders_total",
			Help:      "Server-side chart renders by kind and outcome.",
		}, []string{"kind", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "delhidash",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request handling time in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		SuspiciousRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delhidash",
			Name:      "suspicious_requests_total",
			Help:      "Requests matching known probing patterns.",
		}),
	}
}
