package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// Registry holds all Prometheus metrics for chainsignal
type Registry struct {
	registry *prometheus.Registry

	// Analysis metrics
	Analyses          *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	DimensionFailures *prometheus.CounterVec
	Signals           *prometheus.CounterVec

	// Data metrics
	SnapshotsLoaded *prometheus.CounterVec
	StrikesAnalysed prometheus.Counter

	// Audit metrics
	AuditDropped prometheus.Counter
}

// NewRegistry creates a registry with every chainsignal metric registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsignal_analyses_total",
				Help: "Total number of chain analyses by symbol and outcome",
			},
			[]string{"symbol", "status"},
		),

		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainsignal_analysis_duration_seconds",
				Help:    "Duration of each analysis phase in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"phase"},
		),

		DimensionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsignal_dimension_failures_total",
				Help: "Total number of failed analysis dimensions by dimension and kind",
			},
			[]string{"dimension", "kind"},
		),

		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsignal_signals_total",
				Help: "Total number of strike signals emitted by kind",
			},
			[]string{"symbol", "signal"},
		),

		SnapshotsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainsignal_snapshots_loaded_total",
				Help: "Total number of snapshots loaded by provider",
			},
			[]string{"provider"},
		),

		StrikesAnalysed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chainsignal_strikes_analysed_total",
				Help: "Total number of strikes analysed",
			},
		),

		AuditDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chainsignal_audit_dropped_total",
				Help: "Audit records dropped because the audit queue was full",
			},
		),
	}

	r.registry.MustRegister(
		r.Analyses,
		r.AnalysisDuration,
		r.DimensionFailures,
		r.Signals,
		r.SnapshotsLoaded,
		r.StrikesAnalysed,
		r.AuditDropped,
	)
	return r
}

// ObservePhase records how long an analysis phase took
func (r *Registry) ObservePhase(phase string, d time.Duration) {
	r.AnalysisDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveReport counts a finished analysis with its failures and signals
func (r *Registry) ObserveReport(report *analytics.ChainReport) {
	status := "ok"
	if len(report.Errors) > 0 {
		status = "partial"
	}
	r.Analyses.WithLabelValues(report.Symbol, status).Inc()
	r.StrikesAnalysed.Add(float64(len(report.Rows)))

	for _, e := range report.Errors {
		r.DimensionFailures.WithLabelValues(string(e.Dimension), string(e.Kind)).Inc()
	}
	for _, s := range report.ActiveSignals() {
		r.Signals.WithLabelValues(report.Symbol, string(s.Signal)).Inc()
	}
}

// ObserveFailure counts an analysis that produced no report
func (r *Registry) ObserveFailure(symbol string) {
	r.Analyses.WithLabelValues(symbol, "error").Inc()
}

// ObserveLoad counts a snapshot loaded from provider
func (r *Registry) ObserveLoad(provider string, _ int) {
	r.SnapshotsLoaded.WithLabelValues(provider).Inc()
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the HTTP handler serving the metrics in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
