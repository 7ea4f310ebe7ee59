package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-options/internal/backtest/engine"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/indicator"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/metrics"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/internal/version"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const overallReportFileName = "overall.yaml"

type BacktestEngineV1 struct {
	config            BacktestConfig
	extraConfigs      []BacktestConfig
	expiries          []string
	resultsFolder     string
	log               *logger.Logger
	indicatorRegistry indicator.IndicatorRegistry
	candles           datasource.CandleSource
	ticks             datasource.TickSource
	initialized       bool
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:            BacktestConfig{},
		extraConfigs:      nil,
		expiries:          nil,
		resultsFolder:     "",
		log:               logger.NewNopLogger(),
		indicatorRegistry: indicator.NewDefaultRegistry(),
		candles:           nil,
		ticks:             nil,
		initialized:       false,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	parsed, err := ParseConfig(config)
	if err != nil {
		return err
	}

	b.config = parsed
	b.initialized = true

	b.log.Debug("Backtest engine initialized",
		zap.String("name", parsed.Name),
		zap.String("symbol", parsed.Symbol),
		zap.String("timeframe", string(parsed.Timeframe)),
	)

	return nil
}

// SetConfigContent implements engine.Engine.
func (b *BacktestEngineV1) SetConfigContent(configs []string) error {
	parsed := make([]BacktestConfig, 0, len(configs))

	for _, content := range configs {
		config, err := ParseConfig(content)
		if err != nil {
			return err
		}

		parsed = append(parsed, config)
	}

	b.extraConfigs = parsed
	b.log.Debug("Config content set",
		zap.Int("count", len(parsed)),
	)

	return nil
}

// SetExpiries implements engine.Engine.
func (b *BacktestEngineV1) SetExpiries(expiries []string) error {
	normalized := make([]string, 0, len(expiries))

	for _, expiry := range expiries {
		value, err := NormalizeExpiry(expiry)
		if err != nil {
			return err
		}

		normalized = append(normalized, value)
	}

	b.expiries = normalized

	return nil
}

// SetCandleSource implements engine.Engine.
func (b *BacktestEngineV1) SetCandleSource(source datasource.CandleSource) error {
	b.candles = source

	return nil
}

// SetTickSource implements engine.Engine.
func (b *BacktestEngineV1) SetTickSource(source datasource.TickSource) error {
	b.ticks = source

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetLogger implements engine.Engine.
func (b *BacktestEngineV1) SetLogger(log *logger.Logger) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	b.log = log
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to generate schema", err)
	}

	return schema, nil
}

// runOutcome is the result slot of one parallel run.
type runOutcome struct {
	result types.RunResult
	ok     bool
	err    error
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (result types.OverallResult, err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if err := b.preRunCheck(); err != nil {
		return types.OverallResult{}, err
	}

	runs, err := b.runConfigs()
	if err != nil {
		return types.OverallResult{}, err
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(runs)); err != nil {
			return types.OverallResult{}, err
		}
	}

	if b.resultsFolder != "" {
		if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
			return types.OverallResult{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create results folder", err)
		}
	}

	outcomes := make([]runOutcome, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism(runs))

	for i, config := range runs {
		g.Go(func() error {
			run, err := b.runOne(gctx, i, config, callbacks)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				outcomes[i] = runOutcome{err: err}

				return nil
			}

			outcomes[i] = runOutcome{result: run, ok: true}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.OverallResult{}, errors.Wrap(errors.ErrCodeRunAborted, "backtest cancelled", err)
	}

	overall := types.OverallResult{}

	for i, outcome := range outcomes {
		if outcome.ok {
			overall.Runs = append(overall.Runs, outcome.result)

			continue
		}

		overall.Failed = append(overall.Failed, types.RunFailure{Name: runs[i].Name, Error: outcome.err.Error()})
	}

	overall.Summary = Overall(overall.Runs, b.config.Precision())

	if b.resultsFolder != "" {
		if err := b.writeOverall(overall, runs); err != nil {
			return types.OverallResult{}, err
		}
	}

	b.log.Info("Backtest finished",
		zap.Int("runs", len(overall.Runs)),
		zap.Int("failed", len(overall.Failed)),
		zap.Int("total_trades", overall.Summary.TotalTrades),
		zap.Float64("cumulative_pnl", overall.Summary.CumulativePnl),
	)

	return overall, nil
}

// runOne executes one run and persists it when a results folder is set.
func (b *BacktestEngineV1) runOne(ctx context.Context, index int, config BacktestConfig, callbacks engine.LifecycleCallbacks) (types.RunResult, error) {
	runID := NewRunID()

	var progress progressFunc

	if callbacks.OnProcessDay != nil {
		progress = func(current, total int) error {
			return (*callbacks.OnProcessDay)(config.Name, current, total)
		}
	}

	if callbacks.OnRunStart != nil {
		start, end := config.DateRange()
		totalDays := int(end.Sub(start).Hours()/24 + 0.5)

		if err := (*callbacks.OnRunStart)(runID, index, config.Name, totalDays); err != nil {
			return types.RunResult{}, err
		}
	}

	folder := ""
	if b.resultsFolder != "" {
		folder = getResultFolder(b.resultsFolder, config)
	}

	result, err := b.simulate(ctx, runID, config, progress, folder)
	if err != nil {
		folder = ""
	}

	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		b.log.Error("Run failed", zap.String("run", config.Name), zap.Error(err))
	} else {
		metrics.RunsTotal.WithLabelValues("ok").Inc()
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(index, config.Name, folder)
	}

	return result, err
}

// RunConfig executes a single run without persisting it.
func (b *BacktestEngineV1) RunConfig(ctx context.Context, config BacktestConfig) (types.RunResult, error) {
	if b.candles == nil || b.ticks == nil {
		return types.RunResult{}, errors.New(errors.ErrCodeBacktestInitFailed, "candle and tick sources must be set")
	}

	return b.simulate(ctx, NewRunID(), config, nil, "")
}

type progressFunc func(current, total int) error

// simulate builds the candle series, schedules every day and folds the rows.
// Each call owns its chain cache and result store. The run is exported to
// folder unless folder is empty.
func (b *BacktestEngineV1) simulate(ctx context.Context, runID string, config BacktestConfig, progress progressFunc, folder string) (types.RunResult, error) {
	started := time.Now()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()
	defer func() { metrics.RunDuration.Observe(time.Since(started).Seconds()) }()

	b.log.Info("Run started",
		zap.String("run", config.Name),
		zap.String("symbol", config.Symbol),
		zap.String("start_date", config.StartDate),
		zap.String("end_date", config.EndDate),
	)

	series, err := NewCandleBuilder(b.candles, b.indicatorRegistry, b.log).Build(ctx, config)
	if err != nil {
		return types.RunResult{}, errors.Wrapf(errors.ErrCodeRunAborted, err, "run %s aborted while loading candles", config.Name)
	}

	chainCache := cache.NewChainCache()
	filter := config.Filter()

	scheduler, err := NewScheduler(
		config,
		NewExpiryResolver(b.ticks, filter, config.Expiry, config.Location()),
		NewChainResolver(b.ticks, filter, chainCache, b.log),
		NewTickResolver(b.ticks),
		b.log,
	)
	if err != nil {
		return types.RunResult{}, err
	}

	var trades []types.Trade

	for i, day := range series.Days {
		rows, err := scheduler.RunDay(ctx, day)
		if err != nil {
			return types.RunResult{}, errors.Wrapf(errors.ErrCodeRunAborted, err, "run %s aborted on %s", config.Name, day.Date)
		}

		trades = append(trades, rows...)

		if progress != nil {
			if err := progress(i+1, len(series.Days)); err != nil {
				return types.RunResult{}, errors.Wrapf(errors.ErrCodeRunAborted, err, "run %s aborted by callback", config.Name)
			}
		}
	}

	store, err := NewResultStore(b.log)
	if err != nil {
		return types.RunResult{}, err
	}
	defer store.Close()

	if err := store.Record(runID, config.Name, trades); err != nil {
		return types.RunResult{}, err
	}

	outcomes, err := store.OutcomeCounts(runID)
	if err != nil {
		return types.RunResult{}, err
	}

	lookups, hits := chainCache.Stats()

	for outcome, count := range outcomes {
		metrics.TradeOutcomes.WithLabelValues(outcome).Add(float64(count))
	}

	result := types.RunResult{
		Name:    config.Name,
		Summary: Summarize(trades, config.Precision()),
		Trades:  trades,
		Debug: types.RunDebug{
			EngineVersion:  version.GetVersion(),
			Symbol:         config.Symbol,
			Timeframe:      config.Timeframe,
			Indicator:      config.Indicator.Name,
			StartDate:      config.StartDate,
			EndDate:        config.EndDate,
			CandlesLoaded:  series.CandlesLoaded,
			WarmupCandles:  series.WarmupCandles,
			TradingDays:    len(series.Days),
			Attempts:       attempts(trades),
			ChainLookups:   lookups,
			ChainCacheHits: hits,
			Outcomes:       outcomes,
		},
	}

	if folder != "" {
		if _, err := store.Write(folder, runID, result); err != nil {
			return types.RunResult{}, err
		}
	}

	b.log.Info("Run finished",
		zap.String("run", config.Name),
		zap.Int("total_trades", result.Summary.TotalTrades),
		zap.Int("wins", result.Summary.Wins),
		zap.Int("losses", result.Summary.Losses),
		zap.Float64("cumulative_pnl", result.Summary.CumulativePnl),
	)

	return result, nil
}

// attempts counts rows produced by an entry candidate, excluding day-level rows.
func attempts(trades []types.Trade) int {
	count := 0

	for _, trade := range trades {
		if trade.Reason == types.ReasonNoCandles || trade.Reason == types.ReasonNoEntrySignal {
			continue
		}

		count++
	}

	return count
}

func (b *BacktestEngineV1) writeOverall(overall types.OverallResult, runs []BacktestConfig) error {
	folders := make(map[string]string, len(runs))
	for _, config := range runs {
		folders[config.Name] = getResultFolder(b.resultsFolder, config)
	}

	report := types.OverallReport{
		Summary: overall.Summary,
		Failed:  overall.Failed,
	}

	for _, run := range overall.Runs {
		report.Runs = append(report.Runs, types.RunReport{
			RunResult:      run,
			TradesFilePath: filepath.Join(folders[run.Name], tradesFileName),
		})
	}

	if err := types.WriteReport(filepath.Join(b.resultsFolder, overallReportFileName), report); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write overall report", err)
	}

	return nil
}

// runConfigs expands the configured runs, one per expiry when expiries are set.
func (b *BacktestEngineV1) runConfigs() ([]BacktestConfig, error) {
	base := append([]BacktestConfig{b.config}, b.extraConfigs...)

	if len(b.expiries) == 0 {
		return base, nil
	}

	runs := make([]BacktestConfig, 0, len(base)*len(b.expiries))

	for _, config := range base {
		for _, expiry := range b.expiries {
			run, err := config.WithFixedExpiry(expiry)
			if err != nil {
				return nil, err
			}

			runs = append(runs, run)
		}
	}

	return runs, nil
}

func (b *BacktestEngineV1) parallelism(runs []BacktestConfig) int {
	limit := b.config.Parallelism
	if limit <= 0 {
		limit = 1
	}

	if limit > len(runs) {
		limit = len(runs)
	}

	return max(limit, 1)
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		b.log.Error("Engine not initialized")

		return errors.New(errors.ErrCodeBacktestNoConfigs, "no configuration loaded")
	}

	if b.candles == nil {
		b.log.Error("No candle source set")

		return errors.New(errors.ErrCodeBacktestInitFailed, "no candle source set")
	}

	if b.ticks == nil {
		b.log.Error("No tick source set")

		return errors.New(errors.ErrCodeBacktestInitFailed, "no tick source set")
	}

	return nil
}
