// Package metrics exposes Prometheus collectors for supplier lookups and
// analysis runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	LookupsTotal    *prometheus.CounterVec
	LookupDuration  *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
	RateLimitWait   *prometheus.HistogramVec
	AnalysesTotal   *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	LinesAnalyzed   *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Supplier lookup metrics
		LookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_supplier_lookups_total",
				Help: "Supplier lookups by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		LookupDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bom_supplier_lookup_duration_seconds",
				Help:    "Duration of supplier lookups including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		RetriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_supplier_retries_total",
				Help: "Retried supplier calls",
			},
			[]string{"source"},
		),
		BreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bom_supplier_breaker_state",
				Help: "Circuit breaker state per source (0 closed, 1 open, 2 half-open)",
			},
			[]string{"source"},
		),
		RateLimitWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bom_supplier_rate_limit_wait_seconds",
				Help:    "Time spent waiting on the supplier rate limiter",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"source"},
		),

		// Analysis metrics
		AnalysesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_analyses_total",
				Help: "Analysis runs by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bom_analysis_duration_seconds",
				Help:    "Duration of full analysis runs",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
		LinesAnalyzed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_lines_analyzed_total",
				Help: "BOM lines analyzed by line status",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLookup records one supplier lookup.
func (m *Metrics) ObserveLookup(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(source, outcome).Inc()
	m.LookupDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveAnalysis records one finished run.
func (m *Metrics) ObserveAnalysis(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisSeconds.Observe(d.Seconds())
}

// ObserveLine records one analyzed line by status.
func (m *Metrics) ObserveLine(status string) {
	if m == nil {
		return
	}
	m.LinesAnalyzed.WithLabelValues(status).Inc()
}

// Retry records one retried supplier call.
func (m *Metrics) Retry(source string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(source).Inc()
}

// SetBreakerState records a source's breaker state.
func (m *Metrics) SetBreakerState(source string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(source).Set(float64(state))
}

// ObserveRateLimitWait records time blocked on a rate limiter.
func (m *Metrics) ObserveRateLimitWait(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.RateLimitWait.WithLabelValues(source).Observe(d.Seconds())
}
