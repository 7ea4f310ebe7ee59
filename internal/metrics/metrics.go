// Package metrics provides Prometheus instrumentation for the backtest engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts finished runs, partitioned by status (ok, failed).
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_options_runs_total",
		Help: "Total number of backtest runs finished",
	}, []string{"status"})

	// RunDuration tracks wall time of a single run.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "argo_options_run_duration_seconds",
		Help:    "Backtest run duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// TradeOutcomes counts result rows by outcome tag (exit reason or not-taken reason).
	TradeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_options_trade_outcomes_total",
		Help: "Result rows recorded by the trade scheduler, by outcome",
	}, []string{"outcome"})

	// RiskHits counts stop-loss and target hits on the MAIN leg.
	RiskHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_options_risk_hits_total",
		Help: "Stop-loss and target hits found by the risk scan",
	}, []string{"kind"})

	// ChainLookups counts option chain lookups, partitioned by cache result (hit, miss).
	ChainLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argo_options_chain_lookups_total",
		Help: "Option chain lookups by cache result",
	}, []string{"result"})

	// ActiveRuns tracks runs currently executing.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "argo_options_active_runs",
		Help: "Number of backtest runs currently executing",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
