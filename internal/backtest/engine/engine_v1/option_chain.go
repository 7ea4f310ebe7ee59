package engine

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/metrics"
	"github.com/rxtech-lab/argo-options/internal/types"
	"go.uber.org/zap"
)

// ChainResolver discovers the listed contracts of an expiry from tick data.
// Results are kept in the run's chain cache.
type ChainResolver struct {
	ticks  datasource.TickSource
	filter types.ContractFilter
	cache  cache.ChainCache
	log    *logger.Logger
}

func NewChainResolver(ticks datasource.TickSource, filter types.ContractFilter, chainCache cache.ChainCache, log *logger.Logger) *ChainResolver {
	return &ChainResolver{
		ticks:  ticks,
		filter: filter,
		cache:  chainCache,
		log:    log,
	}
}

// Resolve returns the chain of expiry as of window.
func (r *ChainResolver) Resolve(ctx context.Context, expiry string, window types.TimeWindow) (types.OptionChain, error) {
	chain, hit, err := r.cache.GetOrLoad(expiry, window, func() (types.OptionChain, error) {
		records, err := r.ticks.ListInstruments(ctx, r.filter, expiry, window)
		if err != nil {
			return types.OptionChain{}, err
		}

		return r.build(expiry, window, records), nil
	})

	if err == nil {
		result := "miss"
		if hit {
			result = "hit"
		}

		metrics.ChainLookups.WithLabelValues(result).Inc()
	}

	return chain, err
}

// build partitions instruments into put and call ladders sorted by strike.
// Instruments with an unparsable strike or option type are dropped. When two
// instruments share a strike the smaller ID is kept.
func (r *ChainResolver) build(expiry string, window types.TimeWindow, records []types.InstrumentRecord) types.OptionChain {
	chain := types.OptionChain{Expiry: expiry, AsOfWindow: window}

	for _, record := range records {
		strike, ok := parseStrike(record.Strike)
		if !ok {
			r.log.Debug("Dropping instrument with unparsable strike", zap.String("instrument", record.ID), zap.String("strike", record.Strike))

			continue
		}

		optionType, ok := types.ParseOptionType(record.OptionType)
		if !ok {
			r.log.Debug("Dropping instrument with unknown option type", zap.String("instrument", record.ID), zap.String("option_type", record.OptionType))

			continue
		}

		instrument := types.Instrument{ID: record.ID, Strike: strike, OptionType: optionType, Expiry: expiry}
		if optionType == types.OptionTypePut {
			chain.Puts = append(chain.Puts, instrument)
		} else {
			chain.Calls = append(chain.Calls, instrument)
		}
	}

	chain.Puts = sortLadder(chain.Puts)
	chain.Calls = sortLadder(chain.Calls)

	return chain
}

func sortLadder(ladder []types.Instrument) []types.Instrument {
	sort.Slice(ladder, func(i, j int) bool {
		if ladder[i].Strike == ladder[j].Strike {
			return ladder[i].ID < ladder[j].ID
		}

		return ladder[i].Strike < ladder[j].Strike
	})

	unique := ladder[:0]
	for _, instrument := range ladder {
		if n := len(unique); n > 0 && unique[n-1].Strike == instrument.Strike {
			continue
		}

		unique = append(unique, instrument)
	}

	return unique
}

func parseStrike(raw string) (float64, bool) {
	strike, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(strike) || math.IsInf(strike, 0) || strike <= 0 {
		return 0, false
	}

	return strike, true
}
