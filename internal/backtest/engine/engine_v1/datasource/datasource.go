package datasource

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
)

// CandleSource serves underlying OHLCV candles.
type CandleSource interface {
	// GetCandles returns the candles of symbol aggregated to timeframe with
	// open time in [start, end), ordered by time.
	GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error)
}

// TickSource serves per-instrument option ticks. Every window is closed on both ends.
type TickSource interface {
	// FirstTick returns the earliest tick of the instrument inside window.
	FirstTick(ctx context.Context, instrumentID string, window types.TimeWindow) (optional.Option[types.Tick], error)
	// LastTick returns the latest tick of the instrument inside window.
	LastTick(ctx context.Context, instrumentID string, window types.TimeWindow) (optional.Option[types.Tick], error)
	// FirstTickBeyond returns the earliest tick inside window whose price crosses bound.
	FirstTickBeyond(ctx context.Context, instrumentID string, window types.TimeWindow, bound types.PriceBound) (optional.Option[types.Tick], error)
	// ListExpiries returns the distinct expiries in [minExpiry, maxExpiry] that
	// have at least one tick inside window, sorted ascending.
	ListExpiries(ctx context.Context, filter types.ContractFilter, minExpiry, maxExpiry string, window types.TimeWindow) ([]string, error)
	// ListInstruments returns one record per instrument of expiry with a tick
	// inside window. Metadata comes from the instrument's first tick in window.
	ListInstruments(ctx context.Context, filter types.ContractFilter, expiry string, window types.TimeWindow) ([]types.InstrumentRecord, error)
}
