package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/indicator"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"go.uber.org/zap"
)

// maxWarmupWidening bounds how often the warmup lookback is doubled when
// sessions gaps leave too few candles before the start date.
const maxWarmupWidening = 6

// TradingDay holds the annotated candles of one calendar day in the session timezone.
type TradingDay struct {
	Date    string
	Start   time.Time
	End     time.Time
	Candles []types.AnnotatedCandle
}

// CandleSeries is the Candle Builder output of one run.
type CandleSeries struct {
	Days          []TradingDay
	CandlesLoaded int
	WarmupCandles int
}

// CandleBuilder loads the underlying candles of a run, normalizes them and
// runs the indicator once over warmup plus range.
type CandleBuilder struct {
	source   datasource.CandleSource
	registry indicator.IndicatorRegistry
	log      *logger.Logger
}

func NewCandleBuilder(source datasource.CandleSource, registry indicator.IndicatorRegistry, log *logger.Logger) *CandleBuilder {
	return &CandleBuilder{
		source:   source,
		registry: registry,
		log:      log,
	}
}

// Build returns one TradingDay per calendar day of the configured range, in
// order. Days without candles are kept with an empty candle slice.
func (b *CandleBuilder) Build(ctx context.Context, config BacktestConfig) (CandleSeries, error) {
	ind, err := b.registry.GetIndicator(config.Indicator.Name)
	if err != nil {
		return CandleSeries{}, err
	}

	if err := ind.Config(config.Indicator.Params()...); err != nil {
		return CandleSeries{}, err
	}

	timeframe, err := config.Timeframe.Duration()
	if err != nil {
		return CandleSeries{}, errors.Wrap(errors.ErrCodeInvalidTimeframe, "invalid timeframe", err)
	}

	start, end := config.DateRange()

	candles, warmup, err := b.load(ctx, config, timeframe, start, end)
	if err != nil {
		return CandleSeries{}, err
	}

	annotated, err := indicator.Annotate(ind, candles)
	if err != nil {
		return CandleSeries{}, err
	}

	days := splitDays(b.dropGaps(annotated[warmup:]), start, end, config.Location())
	loaded := countValid(candles)
	warmupValid := countValid(candles[:warmup])

	b.log.Debug("Candle series built",
		zap.String("symbol", config.Symbol),
		zap.Int("candles", loaded),
		zap.Int("warmup", warmupValid),
		zap.Int("days", len(days)),
	)

	return CandleSeries{
		Days:          days,
		CandlesLoaded: loaded,
		WarmupCandles: warmupValid,
	}, nil
}

// load fetches the range plus a warmup prefix. The lookback starts at
// warmupCandles bars and doubles while fewer valid warmup candles are found.
// It returns the normalized candles and the index of the first candle in range.
func (b *CandleBuilder) load(ctx context.Context, config BacktestConfig, timeframe time.Duration, start, end time.Time) ([]types.Candle, int, error) {
	lookback := time.Duration(config.WarmupCandles) * timeframe

	var (
		candles []types.Candle
		warmup  int
	)

	for attempt := 0; ; attempt++ {
		raw, err := b.source.GetCandles(ctx, config.Symbol, config.Timeframe, start.Add(-lookback), end)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, 0, err
			}

			b.log.Warn("Candle query failed, treating as empty", zap.String("symbol", config.Symbol), zap.Error(err))

			raw = nil
		}

		candles = b.normalize(raw)
		warmup = sort.Search(len(candles), func(i int) bool { return !candles[i].Time.Before(start) })

		if countValid(candles[:warmup]) >= config.WarmupCandles || attempt >= maxWarmupWidening || lookback == 0 || len(raw) == 0 {
			break
		}

		lookback *= 2
	}

	return candles, warmup, nil
}

// normalize sorts candles by time and keeps one candle per timestamp, the
// first valid one if any. Invalid candles stay in place so the indicator
// treats them as gaps and re-seeds after them.
func (b *CandleBuilder) normalize(raw []types.Candle) []types.Candle {
	candles := append([]types.Candle(nil), raw...)
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })

	deduped := candles[:0]
	for i, c := range candles {
		if i > 0 && c.Time.Equal(deduped[len(deduped)-1].Time) {
			if last := &deduped[len(deduped)-1]; !last.IsValid() && c.IsValid() {
				*last = c
			}

			continue
		}

		deduped = append(deduped, c)
	}

	return deduped
}

// dropGaps removes the invalid candles once the indicator has run over them.
func (b *CandleBuilder) dropGaps(annotated []types.AnnotatedCandle) []types.AnnotatedCandle {
	kept := make([]types.AnnotatedCandle, 0, len(annotated))

	for _, c := range annotated {
		if !c.IsValid() {
			b.log.Debug("Dropping invalid candle", zap.Time("time", c.Time), zap.Float64("close", c.Close))

			continue
		}

		kept = append(kept, c)
	}

	return kept
}

func countValid(candles []types.Candle) int {
	n := 0

	for _, c := range candles {
		if c.IsValid() {
			n++
		}
	}

	return n
}

// splitDays groups candles by calendar day in loc for every day in [start, end).
func splitDays(candles []types.AnnotatedCandle, start, end time.Time, loc *time.Location) []TradingDay {
	var days []TradingDay

	i := 0

	for dayStart := start; dayStart.Before(end); {
		y, m, d := dayStart.Date()
		next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

		day := TradingDay{
			Date:  dayStart.Format(dateLayout),
			Start: dayStart,
			End:   next.Add(-time.Nanosecond),
		}

		for i < len(candles) && candles[i].Time.Before(next) {
			if !candles[i].Time.Before(dayStart) {
				day.Candles = append(day.Candles, candles[i])
			}

			i++
		}

		days = append(days, day)
		dayStart = next
	}

	return days
}
