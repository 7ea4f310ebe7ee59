package engine

import (
	"context"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/metrics"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Scheduler turns the annotated candles of a day into result rows.
//
// Per day it repeats: find an entry, plan the exit, resolve expiry, chain and
// legs, price the entry, race stop-loss against target on the MAIN leg, price
// the exit and advance the cursor. It stops at the end of the day or once
// max_trades_per_day positions were taken.
type Scheduler struct {
	config    BacktestConfig
	timeframe time.Duration
	expiries  *ExpiryResolver
	chains    *ChainResolver
	ticks     *TickResolver
	log       *logger.Logger
}

func NewScheduler(config BacktestConfig, expiries *ExpiryResolver, chains *ChainResolver, ticks *TickResolver, log *logger.Logger) (*Scheduler, error) {
	timeframe, err := config.Timeframe.Duration()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTimeframe, "invalid timeframe", err)
	}

	return &Scheduler{
		config:    config,
		timeframe: timeframe,
		expiries:  expiries,
		chains:    chains,
		ticks:     ticks,
		log:       log,
	}, nil
}

// plan is an entry candidate with its planned exit.
type plan struct {
	day         TradingDay
	signal      types.AnnotatedCandle
	entryTime   time.Time
	exitIndex   int
	plannedExit time.Time
	exitReason  types.ExitReason
}

// attemptResult is the row produced by one attempt plus the instant the cursor
// must move past.
type attemptResult struct {
	trade   types.Trade
	resume  time.Time
	riskHit bool
}

// RunDay processes one trading day. Only a fatal collaborator error is returned.
func (s *Scheduler) RunDay(ctx context.Context, day TradingDay) ([]types.Trade, error) {
	if len(day.Candles) == 0 {
		return []types.Trade{{Date: day.Date, Reason: types.ReasonNoCandles}}, nil
	}

	var (
		trades []types.Trade
		cursor int
		taken  int
	)

	exitClock := s.config.ExitClock(day.Start)
	candles := day.Candles

	for scan := 0; cursor < len(candles) && taken < s.config.MaxTradesPerDay; scan++ {
		entryIndex, ok := s.findEntry(candles, cursor, scan == 0)
		if !ok {
			break
		}

		p := s.planExit(day, entryIndex, exitClock)

		if exitClock.IsSome() && !p.entryTime.Before(exitClock.Unwrap()) {
			trades = append(trades, types.Trade{
				Date:       day.Date,
				Reason:     types.ReasonEntryAfterExitTime,
				SignalTime: p.signal.Time,
				EntryTime:  p.entryTime,
			})

			break
		}

		result, err := s.attempt(ctx, p)
		if err != nil {
			return nil, err
		}

		trades = append(trades, result.trade)
		if result.trade.Took {
			taken++
		}

		next := p.exitIndex + 1
		if result.riskHit {
			next = firstCandleAfter(candles, result.resume, entryIndex+1)
		}

		cursor = next
	}

	if len(trades) == 0 {
		trades = append(trades, types.Trade{Date: day.Date, Reason: types.ReasonNoEntrySignal})
	}

	return trades, nil
}

// findEntry returns the first buy signal at or after cursor. On the first scan
// of the day with TREND_FALLBACK it falls back to the first candle already in
// an UP trend.
func (s *Scheduler) findEntry(candles []types.AnnotatedCandle, cursor int, firstScan bool) (int, bool) {
	for i := cursor; i < len(candles); i++ {
		if candles[i].BuySignal() {
			return i, true
		}
	}

	if !firstScan || s.config.EntryMode != EntryModeTrendFallback {
		return 0, false
	}

	for i := cursor; i < len(candles); i++ {
		if candles[i].IsTrend(types.TrendUp) {
			return i, true
		}
	}

	return 0, false
}

// planExit picks the earlier of the first sell signal after entry and the
// fixed exit clock, falling back to the close of the day's last candle.
// Candle instants are closes: open time plus one timeframe.
func (s *Scheduler) planExit(day TradingDay, entryIndex int, exitClock optional.Option[time.Time]) plan {
	candles := day.Candles
	signal := candles[entryIndex]

	p := plan{
		day:         day,
		signal:      signal,
		entryTime:   signal.Time.Add(s.timeframe),
		exitIndex:   len(candles) - 1,
		plannedExit: candles[len(candles)-1].Time.Add(s.timeframe),
		exitReason:  types.ExitDayEnd,
	}

	sellIndex := -1

	for i := entryIndex + 1; i < len(candles); i++ {
		if candles[i].SellSignal() {
			sellIndex = i

			break
		}
	}

	if sellIndex >= 0 {
		p.exitIndex = sellIndex
		p.plannedExit = candles[sellIndex].Time.Add(s.timeframe)
		p.exitReason = types.ExitSellSignal
	}

	if exitClock.IsSome() && (sellIndex < 0 || exitClock.Unwrap().Before(p.plannedExit)) {
		clock := exitClock.Unwrap()
		p.plannedExit = clock
		p.exitReason = types.ExitTimeExit
		p.exitIndex = lastCandleBefore(candles, clock, entryIndex)
	}

	return p
}

// attempt realizes one planned trade. Data absence is returned as a not-taken
// row; only fatal errors are returned as errors.
func (s *Scheduler) attempt(ctx context.Context, p plan) (attemptResult, error) {
	row := types.Trade{
		Date:            p.day.Date,
		SignalTime:      p.signal.Time,
		PlannedExitTime: p.plannedExit,
		EntryTime:       p.entryTime,
		UnderlyingPrice: p.signal.Close,
	}

	abort := func(reason types.OutcomeReason, leg types.LegRole) (attemptResult, error) {
		row.Reason = reason
		row.FailedLeg = leg

		s.log.Debug("Trade not taken",
			zap.String("date", p.day.Date),
			zap.Time("signal_time", p.signal.Time),
			zap.String("reason", string(reason)),
		)

		return attemptResult{trade: row}, nil
	}

	expiry, err := s.expiries.Resolve(ctx, p.entryTime)
	if err := s.tolerate(err, "expiry lookup"); err != nil {
		return attemptResult{}, err
	}

	if err != nil || expiry.IsNone() {
		return abort(types.ReasonNoExpiry, "")
	}

	row.Expiry = expiry.Unwrap()

	chain, err := s.chains.Resolve(ctx, row.Expiry, types.TimeWindow{Start: p.day.Start, End: p.day.End})
	if err := s.tolerate(err, "chain lookup"); err != nil {
		return attemptResult{}, err
	}

	optionType := s.config.Option.OptionType
	ladder := chain.Ladder(optionType)

	if len(ladder) == 0 {
		if optionType == types.OptionTypeCall {
			return abort(types.ReasonNoCallChain, "")
		}

		return abort(types.ReasonNoPutChain, "")
	}

	if !finitePositive(p.signal.Close) {
		return abort(types.ReasonInvalidUnderlyingPrice, "")
	}

	atm, _ := PickATM(ladder, p.signal.Close, s.config.Option.ATMTieBreak)

	legs := []types.LegSpec{s.config.MainLeg()}
	if hedge := s.config.HedgeLeg(); hedge.IsSome() {
		legs = append(legs, hedge.Unwrap())
	}

	fills := make([]types.LegFill, 0, len(legs))

	for _, spec := range legs {
		instrument, ok := PickByMoneyness(ladder, atm, spec.Moneyness, optionType)
		if !ok {
			return abort(types.ReasonMoneynessOutOfRange, spec.Role)
		}

		fills = append(fills, types.LegFill{Role: spec.Role, Side: spec.Side, Instrument: instrument})
	}

	for i := range fills {
		tick, err := s.ticks.FirstAtOrAfter(ctx, fills[i].Instrument.ID, p.entryTime, p.plannedExit.Add(-time.Nanosecond))
		if err := s.tolerate(err, "entry tick lookup"); err != nil {
			return attemptResult{}, err
		}

		if err != nil || tick.IsNone() {
			return abort(entryTickReason(fills[i].Role), fills[i].Role)
		}

		if !finitePositive(tick.Unwrap().Price) {
			return abort(types.ReasonInvalidPrice, fills[i].Role)
		}

		fills[i].EntryTime = tick.Unwrap().Time
		fills[i].EntryPrice = tick.Unwrap().Price
	}

	mainLeg := &fills[0]
	exitTime := p.plannedExit
	exitReason := p.exitReason

	stopLoss, target := s.riskBounds(mainLeg.Side, mainLeg.EntryPrice)

	hit, err := s.ticks.FirstRiskHit(ctx, mainLeg.Instrument.ID, mainLeg.EntryTime.Add(time.Nanosecond), p.plannedExit, stopLoss, target)
	if err := s.tolerate(err, "risk scan"); err != nil {
		return attemptResult{}, err
	}

	if err == nil && hit.IsSome() {
		h := hit.Unwrap()
		exitTime = h.Tick.Time
		exitReason = types.ExitTargetHitMain

		if h.Kind == RiskStopLoss {
			exitReason = types.ExitStopLossHitMain
		}

		metrics.RiskHits.WithLabelValues(string(h.Kind)).Inc()

		mainLeg.ExitTime = h.Tick.Time
		mainLeg.ExitPrice = h.Tick.Price
	} else {
		tick, err := s.mainExitTick(ctx, mainLeg, exitTime, p.day.End)
		if err != nil {
			return attemptResult{}, err
		}

		if tick.IsNone() {
			return abort(types.ReasonNoExitTickMain, types.LegRoleMain)
		}

		mainLeg.ExitTime = tick.Unwrap().Time
		mainLeg.ExitPrice = tick.Unwrap().Price
	}

	for i := 1; i < len(fills); i++ {
		// A hedge first quoted at or after the main exit was never held.
		if !fills[i].EntryTime.Before(exitTime) {
			return abort(entryTickReason(fills[i].Role), fills[i].Role)
		}

		tick, err := s.hedgeExitTick(ctx, &fills[i], exitTime, p.day.End)
		if err != nil {
			return attemptResult{}, err
		}

		if tick.IsNone() {
			return abort(types.ReasonNoExitTickHedge, fills[i].Role)
		}

		fills[i].ExitTime = tick.Unwrap().Time
		fills[i].ExitPrice = tick.Unwrap().Price
	}

	netPoints := decimal.Zero

	for i := range fills {
		if !finitePositive(fills[i].ExitPrice) {
			return abort(types.ReasonInvalidPrice, fills[i].Role)
		}

		points := legPoints(fills[i].Side, fills[i].EntryPrice, fills[i].ExitPrice)
		fills[i].Points = points.InexactFloat64()
		netPoints = netPoints.Add(points)
	}

	precision := int32(s.config.Precision())
	netPnl := netPoints.Mul(decimal.NewFromFloat(s.config.Quantity)).Round(precision)

	row.Took = true
	row.ExitTime = exitTime
	row.ExitReason = exitReason
	row.Legs = fills
	row.NetPoints = netPoints.Round(precision).InexactFloat64()
	row.NetPnl = netPnl.InexactFloat64()

	s.log.Debug("Trade taken",
		zap.String("date", row.Date),
		zap.String("instrument", mainLeg.Instrument.ID),
		zap.Time("entry_time", row.EntryTime),
		zap.Time("exit_time", row.ExitTime),
		zap.String("exit_reason", string(row.ExitReason)),
		zap.Float64("net_pnl", row.NetPnl),
	)

	return attemptResult{trade: row, resume: exitTime, riskHit: exitReason.IsRiskExit()}, nil
}

// riskBounds converts the percentage risk settings into absolute price bounds
// for a leg entered at entryPrice. A short leg loses when the premium rises.
func (s *Scheduler) riskBounds(side types.Side, entryPrice float64) (optional.Option[types.PriceBound], optional.Option[types.PriceBound]) {
	stopLoss := optional.None[types.PriceBound]()
	target := optional.None[types.PriceBound]()

	lossDirection, gainDirection := types.BoundAtOrAbove, types.BoundAtOrBelow
	lossSign := 1.0

	if side == types.SideLong {
		lossDirection, gainDirection = types.BoundAtOrBelow, types.BoundAtOrAbove
		lossSign = -1.0
	}

	if pct := s.config.Risk.StopLossPct; pct.IsSome() {
		level := entryPrice * (1 + lossSign*pct.Unwrap()/100)
		if finitePositive(level) {
			stopLoss = optional.Some(types.PriceBound{Level: level, Direction: lossDirection})
		}
	}

	if pct := s.config.Risk.TargetPct; pct.IsSome() {
		level := entryPrice * (1 - lossSign*pct.Unwrap()/100)
		if finitePositive(level) {
			target = optional.Some(types.PriceBound{Level: level, Direction: gainDirection})
		}
	}

	return stopLoss, target
}

// mainExitTick prices the MAIN leg at exitTime: the last tick after entry up to
// exitTime, else the first tick after exitTime on the same day.
func (s *Scheduler) mainExitTick(ctx context.Context, leg *types.LegFill, exitTime, dayEnd time.Time) (optional.Option[types.Tick], error) {
	tick, err := s.ticks.LastAtOrBefore(ctx, leg.Instrument.ID, leg.EntryTime.Add(time.Nanosecond), exitTime)
	if err := s.tolerate(err, "main exit tick lookup"); err != nil {
		return optional.None[types.Tick](), err
	}

	if err == nil && tick.IsSome() {
		return tick, nil
	}

	return s.firstTolerated(ctx, leg.Instrument.ID, exitTime, dayEnd, "main exit fallback lookup")
}

// hedgeExitTick prices a HEDGE leg at exitTime. Forward tolerance windows are
// tried first, then the last tick before exitTime, then the rest of the day.
func (s *Scheduler) hedgeExitTick(ctx context.Context, leg *types.LegFill, exitTime, dayEnd time.Time) (optional.Option[types.Tick], error) {
	from := exitTime
	if held := leg.EntryTime.Add(time.Nanosecond); from.Before(held) {
		from = held
	}

	for _, tolerance := range s.config.HedgeExitTolerances {
		tick, err := s.firstTolerated(ctx, leg.Instrument.ID, from, exitTime.Add(tolerance), "hedge exit lookup")
		if err != nil || tick.IsSome() {
			return tick, err
		}
	}

	tick, err := s.ticks.LastAtOrBefore(ctx, leg.Instrument.ID, leg.EntryTime.Add(time.Nanosecond), exitTime)
	if err := s.tolerate(err, "hedge exit backward lookup"); err != nil {
		return optional.None[types.Tick](), err
	}

	if err == nil && tick.IsSome() {
		return tick, nil
	}

	return s.firstTolerated(ctx, leg.Instrument.ID, from, dayEnd, "hedge exit fallback lookup")
}

func (s *Scheduler) firstTolerated(ctx context.Context, instrumentID string, from, until time.Time, what string) (optional.Option[types.Tick], error) {
	tick, err := s.ticks.FirstAtOrAfter(ctx, instrumentID, from, until)
	if err := s.tolerate(err, what); err != nil {
		return optional.None[types.Tick](), err
	}

	if err != nil {
		return optional.None[types.Tick](), nil
	}

	return tick, nil
}

// tolerate returns err when it must abort the run. Any other collaborator
// failure is logged and the caller treats the lookup as empty.
func (s *Scheduler) tolerate(err error, what string) error {
	if err == nil {
		return nil
	}

	if errors.IsFatal(err) {
		return err
	}

	s.log.Warn("Lookup failed, treating as empty", zap.String("lookup", what), zap.Error(err))

	return nil
}

func entryTickReason(role types.LegRole) types.OutcomeReason {
	if role == types.LegRoleHedge {
		return types.ReasonNoEntryTickHedge
	}

	return types.ReasonNoEntryTickMain
}

// legPoints is entry-exit for a short leg and exit-entry for a long leg.
func legPoints(side types.Side, entryPrice, exitPrice float64) decimal.Decimal {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)

	if side == types.SideLong {
		return exit.Sub(entry)
	}

	return entry.Sub(exit)
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// firstCandleAfter returns the index of the first candle opening strictly after
// t, never less than floor.
func firstCandleAfter(candles []types.AnnotatedCandle, t time.Time, floor int) int {
	i := floor
	for i < len(candles) && !candles[i].Time.After(t) {
		i++
	}

	return i
}

// lastCandleBefore returns the index of the last candle opening before t, never
// less than floor.
func lastCandleBefore(candles []types.AnnotatedCandle, t time.Time, floor int) int {
	index := floor
	for i := floor; i < len(candles) && candles[i].Time.Before(t); i++ {
		index = i
	}

	return index
}
