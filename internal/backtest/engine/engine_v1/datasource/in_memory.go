package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// InMemoryCandleSource serves base candles held in memory and aggregates them
// the same way DuckDBSource does.
type InMemoryCandleSource struct {
	mu      sync.RWMutex
	candles []types.Candle
}

var _ CandleSource = (*InMemoryCandleSource)(nil)

// NewInMemoryCandleSource creates a source holding the given base candles.
func NewInMemoryCandleSource(candles ...types.Candle) *InMemoryCandleSource {
	s := &InMemoryCandleSource{}
	s.Add(candles...)

	return s
}

// Add appends base candles.
func (s *InMemoryCandleSource) Add(candles ...types.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.candles = append(s.candles, candles...)
	sort.SliceStable(s.candles, func(i, j int) bool { return s.candles[i].Time.Before(s.candles[j].Time) })
}

// GetCandles implements CandleSource.
func (s *InMemoryCandleSource) GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bucketSize, err := timeframe.Duration()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTimeframe, "unsupported timeframe", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []types.Candle

	for _, c := range s.candles {
		if c.Symbol != symbol || c.Time.Before(start) || !c.Time.Before(end) {
			continue
		}

		bucket := c.Time.UTC().Truncate(bucketSize)
		if n := len(result); n > 0 && result[n-1].Time.Equal(bucket) {
			last := &result[n-1]
			last.High = max(last.High, c.High)
			last.Low = min(last.Low, c.Low)
			last.Close = c.Close
			last.Volume += c.Volume

			continue
		}

		c.Time = bucket
		result = append(result, c)
	}

	return result, nil
}

// InMemoryTickSource serves tick records held in memory.
type InMemoryTickSource struct {
	mu           sync.RWMutex
	byInstrument map[string][]types.TickRecord
	closed       bool
}

var _ TickSource = (*InMemoryTickSource)(nil)

// NewInMemoryTickSource creates a source holding the given ticks.
func NewInMemoryTickSource(records ...types.TickRecord) *InMemoryTickSource {
	s := &InMemoryTickSource{byInstrument: make(map[string][]types.TickRecord)}
	s.Add(records...)

	return s
}

// Add appends tick records. Ticks of one instrument are kept ordered by time then price.
func (s *InMemoryTickSource) Add(records ...types.TickRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, r := range records {
		s.byInstrument[r.InstrumentID] = append(s.byInstrument[r.InstrumentID], r)
		touched[r.InstrumentID] = struct{}{}
	}

	for id := range touched {
		ticks := s.byInstrument[id]
		sort.SliceStable(ticks, func(i, j int) bool {
			if ticks[i].Time.Equal(ticks[j].Time) {
				return ticks[i].Price < ticks[j].Price
			}

			return ticks[i].Time.Before(ticks[j].Time)
		})
	}
}

// Close makes every further query fail as unavailable.
func (s *InMemoryTickSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// window returns the ticks of the instrument inside w.
func (s *InMemoryTickSource) window(ctx context.Context, instrumentID string, w types.TimeWindow) ([]types.TickRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.closed {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "tick source is closed")
	}

	ticks := s.byInstrument[instrumentID]
	lo := sort.Search(len(ticks), func(i int) bool { return !ticks[i].Time.Before(w.Start) })
	hi := sort.Search(len(ticks), func(i int) bool { return ticks[i].Time.After(w.End) })

	if lo >= hi {
		return nil, nil
	}

	return ticks[lo:hi], nil
}

// FirstTick implements TickSource.
func (s *InMemoryTickSource) FirstTick(ctx context.Context, instrumentID string, w types.TimeWindow) (optional.Option[types.Tick], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticks, err := s.window(ctx, instrumentID, w)
	if err != nil || len(ticks) == 0 {
		return optional.None[types.Tick](), err
	}

	return optional.Some(ticks[0].Tick), nil
}

// LastTick implements TickSource.
func (s *InMemoryTickSource) LastTick(ctx context.Context, instrumentID string, w types.TimeWindow) (optional.Option[types.Tick], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticks, err := s.window(ctx, instrumentID, w)
	if err != nil || len(ticks) == 0 {
		return optional.None[types.Tick](), err
	}

	// lowest price among the ticks sharing the last timestamp, like the SQL ordering
	last := len(ticks) - 1
	for last > 0 && ticks[last-1].Time.Equal(ticks[len(ticks)-1].Time) {
		last--
	}

	return optional.Some(ticks[last].Tick), nil
}

// FirstTickBeyond implements TickSource.
func (s *InMemoryTickSource) FirstTickBeyond(ctx context.Context, instrumentID string, w types.TimeWindow, bound types.PriceBound) (optional.Option[types.Tick], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticks, err := s.window(ctx, instrumentID, w)
	if err != nil {
		return optional.None[types.Tick](), err
	}

	for _, t := range ticks {
		if bound.Hit(t.Price) {
			return optional.Some(t.Tick), nil
		}
	}

	return optional.None[types.Tick](), nil
}

// ListExpiries implements TickSource.
func (s *InMemoryTickSource) ListExpiries(ctx context.Context, filter types.ContractFilter, minExpiry, maxExpiry string, w types.TimeWindow) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})

	for id := range s.byInstrument {
		ticks, err := s.window(ctx, id, w)
		if err != nil {
			return nil, err
		}

		for _, t := range ticks {
			if matches(t, filter) && t.Expiry >= minExpiry && t.Expiry <= maxExpiry {
				seen[t.Expiry] = struct{}{}
			}
		}
	}

	expiries := make([]string, 0, len(seen))
	for expiry := range seen {
		expiries = append(expiries, expiry)
	}

	sort.Strings(expiries)

	return expiries, nil
}

// ListInstruments implements TickSource.
func (s *InMemoryTickSource) ListInstruments(ctx context.Context, filter types.ContractFilter, expiry string, w types.TimeWindow) ([]types.InstrumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []types.InstrumentRecord

	for id := range s.byInstrument {
		ticks, err := s.window(ctx, id, w)
		if err != nil {
			return nil, err
		}

		for _, t := range ticks {
			if !matches(t, filter) || t.Expiry != expiry {
				continue
			}

			records = append(records, types.InstrumentRecord{
				ID:         id,
				Strike:     t.Strike,
				OptionType: t.OptionType,
				Expiry:     t.Expiry,
			})

			break
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return records, nil
}

func matches(t types.TickRecord, filter types.ContractFilter) bool {
	return (filter.ContractType == "" || t.ContractType == filter.ContractType) &&
		(filter.Asset == "" || t.Asset == filter.Asset) &&
		(filter.Currency == "" || t.Currency == filter.Currency)
}
