package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RunSummary is derived from a run's trade rows and never mutated on its own.
type RunSummary struct {
	// Count of taken trades.
	TotalTrades int `yaml:"total_trades" json:"total_trades"`
	// Count of taken trades with positive net pnl.
	Wins int `yaml:"wins" json:"wins"`
	// Count of taken trades with negative net pnl.
	Losses int `yaml:"losses" json:"losses"`
	// TotalTrades - Wins - Losses.
	Breakeven int `yaml:"breakeven" json:"breakeven"`
	// Sum of net pnl, rounded to the configured precision.
	CumulativePnl float64 `yaml:"cumulative_pnl" json:"cumulative_pnl"`
	WinRatePct    float64 `yaml:"win_rate_pct" json:"win_rate_pct"`
	LossRatePct   float64 `yaml:"loss_rate_pct" json:"loss_rate_pct"`
	// CumulativePnl / TotalTrades, 0 when there are no trades.
	AvgPnlPerTrade float64 `yaml:"avg_pnl_per_trade" json:"avg_pnl_per_trade"`
}

// RunDebug carries diagnostic metadata about a run.
type RunDebug struct {
	EngineVersion  string         `yaml:"engine_version" json:"engine_version"`
	Symbol         string         `yaml:"symbol" json:"symbol"`
	Timeframe      Timeframe      `yaml:"timeframe" json:"timeframe"`
	Indicator      IndicatorType  `yaml:"indicator" json:"indicator"`
	StartDate      string         `yaml:"start_date" json:"start_date"`
	EndDate        string         `yaml:"end_date" json:"end_date"`
	CandlesLoaded  int            `yaml:"candles_loaded" json:"candles_loaded"`
	WarmupCandles  int            `yaml:"warmup_candles" json:"warmup_candles"`
	TradingDays    int            `yaml:"trading_days" json:"trading_days"`
	Attempts       int            `yaml:"attempts" json:"attempts"`
	ChainLookups   int            `yaml:"chain_lookups" json:"chain_lookups"`
	ChainCacheHits int            `yaml:"chain_cache_hits" json:"chain_cache_hits"`
	Outcomes       map[string]int `yaml:"outcomes" json:"outcomes"`
}

// RunResult is the output of one run: the summary, every result row in
// order, and diagnostics.
type RunResult struct {
	Name    string     `yaml:"name" json:"name"`
	Summary RunSummary `yaml:"summary" json:"summary"`
	Trades  []Trade    `yaml:"-" json:"trades"`
	Debug   RunDebug   `yaml:"debug" json:"debug"`
}

// RunFailure records a run that aborted on a fatal fault.
type RunFailure struct {
	Name  string `yaml:"name" json:"name"`
	Error string `yaml:"error" json:"error"`
}

// OverallResult folds several runs. Summary is recomputed from the runs' counts.
type OverallResult struct {
	Summary RunSummary   `yaml:"summary" json:"summary"`
	Runs    []RunResult  `yaml:"runs" json:"runs"`
	Failed  []RunFailure `yaml:"failed,omitempty" json:"failed,omitempty"`
}

// RunReport is the persisted description of one run.
type RunReport struct {
	// ID is the unique identifier for this run's output.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when the report was written.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	RunResult `yaml:",inline"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
}

// OverallReport is the persisted description of a set of runs.
type OverallReport struct {
	Summary RunSummary   `yaml:"summary"`
	Runs    []RunReport  `yaml:"runs"`
	Failed  []RunFailure `yaml:"failed,omitempty"`
}

// WriteReport writes a RunReport or OverallReport as YAML.
func WriteReport(path string, report any) error {
	// Marshal the struct to YAML
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report to YAML: %w", err)
	}

	// Write the YAML data to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to file: %w", err)
	}

	return nil
}
