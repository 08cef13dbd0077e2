package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	ingestSuccess  *prometheus.CounterVec
	ingestFailed   *prometheus.CounterVec
	ingestAttempts prometheus.Histogram
	tokenRefreshes *prometheus.CounterVec
	runSymbols     *prometheus.GaugeVec
	runsTotal      *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		ingestSuccess: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricefeed_ingest_success_total",
				Help: "Total number of symbols ingested successfully",
			},
			[]string{"symbol"},
		),
		ingestFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricefeed_ingest_failed_total",
				Help: "Total number of symbols that failed ingestion",
			},
			[]string{"symbol"},
		),
		ingestAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricefeed_ingest_attempts",
				Help:    "Attempts consumed per symbol before a terminal outcome",
				Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
			},
		),
		tokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricefeed_token_refreshes_total",
				Help: "Total number of access token refresh exchanges",
			},
			[]string{"result"},
		),
		runSymbols: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricefeed_run_symbols",
				Help: "Symbol counts from the most recent ingest run",
			},
			[]string{"outcome"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricefeed_runs_total",
				Help: "Total number of ingest runs",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(r.ingestSuccess)
	reg.MustRegister(r.ingestFailed)
	reg.MustRegister(r.ingestAttempts)
	reg.MustRegister(r.tokenRefreshes)
	reg.MustRegister(r.runSymbols)
	reg.MustRegister(r.runsTotal)

	return r
}

// SymbolSucceeded records a successful symbol ingestion.
func (r *Registry) SymbolSucceeded(symbol string, attempts int) {
	r.ingestSuccess.WithLabelValues(symbol).Inc()
	r.ingestAttempts.Observe(float64(attempts))
}

// SymbolFailed records a terminally failed symbol.
func (r *Registry) SymbolFailed(symbol string, attempts int) {
	r.ingestFailed.WithLabelValues(symbol).Inc()
	r.ingestAttempts.Observe(float64(attempts))
}

// TokenRefreshed records a token refresh exchange outcome.
func (r *Registry) TokenRefreshed(ok bool) {
	r.tokenRefreshes.WithLabelValues(refreshResult(ok)).Inc()
}

// RunCompleted records the aggregate outcome of an ingest run.
func (r *Registry) RunCompleted(summary core.RunSummary) {
	r.runSymbols.WithLabelValues("success").Set(float64(summary.Success))
	r.runSymbols.WithLabelValues("failed").Set(float64(summary.Failed))
	r.runSymbols.WithLabelValues("total").Set(float64(summary.Total))

	status := "success"
	if summary.HasFailures() {
		status = "failed"
	}
	r.runsTotal.WithLabelValues(status).Inc()
}

func refreshResult(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
