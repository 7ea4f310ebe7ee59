package engine

import (
	"context"

	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
)

// Lifecycle callback types for backtest phases.
// Callbacks with an error return abort the affected run when they fail.

// OnBacktestStartCallback is called once before any run starts.
type OnBacktestStartCallback func(totalRuns int) error

// OnBacktestEndCallback is called when the whole backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when a run begins.
// runID is a unique identifier for the run's persisted output.
type OnRunStartCallback func(runID string, runIndex int, runName string, totalDays int) error

// OnRunEndCallback is called when a run ends. resultFolderPath is empty when
// nothing was persisted.
type OnRunEndCallback func(runIndex int, runName string, resultFolderPath string)

// OnProcessDayCallback is called after each trading day of a run.
type OnProcessDayCallback func(runName string, current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
// Runs execute in parallel, so callbacks must be safe for concurrent use.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessDay    *OnProcessDayCallback
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetConfigContent adds further run configurations next to the one given
	// to Initialize. Each one becomes a separate run.
	SetConfigContent(configs []string) error
	// SetExpiries fans every configuration out into one FIXED-expiry run per expiry.
	SetExpiries(expiries []string) error
	// SetCandleSource sets the source of underlying candles.
	SetCandleSource(source datasource.CandleSource) error
	// SetTickSource sets the source of option ticks.
	SetTickSource(source datasource.TickSource) error
	// SetResultsFolder sets the output directory. Each run writes
	// <folder>/<run name>/trades.parquet and stats.yaml. Empty disables persistence.
	SetResultsFolder(folder string) error
	// SetLogger replaces the engine logger.
	SetLogger(log *logger.Logger)
	// Run executes every configured run with bounded parallelism and folds
	// them into an OverallResult. A run aborted by a fatal fault is reported in
	// OverallResult.Failed and does not affect its siblings. A cancelled
	// context returns an error and no partial result.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (types.OverallResult, error)
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
