package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/types"
	"golang.org/x/sync/errgroup"
)

// RiskKind names the bound that fired in a risk scan.
type RiskKind string

const (
	RiskStopLoss RiskKind = "STOP_LOSS"
	RiskTarget   RiskKind = "TARGET"
)

// RiskHit is the tick that crossed a risk bound.
type RiskHit struct {
	Kind RiskKind
	Tick types.Tick
}

// TickResolver answers point and range questions about one instrument's ticks.
type TickResolver struct {
	source datasource.TickSource
}

func NewTickResolver(source datasource.TickSource) *TickResolver {
	return &TickResolver{source: source}
}

// FirstAtOrAfter returns the first tick in [from, until].
func (r *TickResolver) FirstAtOrAfter(ctx context.Context, instrumentID string, from, until time.Time) (optional.Option[types.Tick], error) {
	if until.Before(from) {
		return optional.None[types.Tick](), nil
	}

	return r.source.FirstTick(ctx, instrumentID, types.TimeWindow{Start: from, End: until})
}

// LastAtOrBefore returns the last tick in [since, at].
func (r *TickResolver) LastAtOrBefore(ctx context.Context, instrumentID string, since, at time.Time) (optional.Option[types.Tick], error) {
	if at.Before(since) {
		return optional.None[types.Tick](), nil
	}

	return r.source.LastTick(ctx, instrumentID, types.TimeWindow{Start: since, End: at})
}

// FirstRiskHit scans [from, to] for the stop-loss and the target bound
// concurrently and returns the earlier hit. A None bound never fires. When both
// fire on the same timestamp the stop-loss wins.
func (r *TickResolver) FirstRiskHit(
	ctx context.Context,
	instrumentID string,
	from, to time.Time,
	stopLoss, target optional.Option[types.PriceBound],
) (optional.Option[RiskHit], error) {
	if to.Before(from) || (stopLoss.IsNone() && target.IsNone()) {
		return optional.None[RiskHit](), nil
	}

	window := types.TimeWindow{Start: from, End: to}

	var stopHit, targetHit optional.Option[types.Tick]

	g, gctx := errgroup.WithContext(ctx)

	scan := func(bound optional.Option[types.PriceBound], out *optional.Option[types.Tick]) func() error {
		return func() error {
			if bound.IsNone() {
				*out = optional.None[types.Tick]()

				return nil
			}

			hit, err := r.source.FirstTickBeyond(gctx, instrumentID, window, bound.Unwrap())
			if err != nil {
				return err
			}

			*out = hit

			return nil
		}
	}

	g.Go(scan(stopLoss, &stopHit))
	g.Go(scan(target, &targetHit))

	if err := g.Wait(); err != nil {
		return optional.None[RiskHit](), err
	}

	switch {
	case stopHit.IsSome() && targetHit.IsSome():
		if targetHit.Unwrap().Time.Before(stopHit.Unwrap().Time) {
			return optional.Some(RiskHit{Kind: RiskTarget, Tick: targetHit.Unwrap()}), nil
		}

		return optional.Some(RiskHit{Kind: RiskStopLoss, Tick: stopHit.Unwrap()}), nil
	case stopHit.IsSome():
		return optional.Some(RiskHit{Kind: RiskStopLoss, Tick: stopHit.Unwrap()}), nil
	case targetHit.IsSome():
		return optional.Some(RiskHit{Kind: RiskTarget, Tick: targetHit.Unwrap()}), nil
	default:
		return optional.None[RiskHit](), nil
	}
}
