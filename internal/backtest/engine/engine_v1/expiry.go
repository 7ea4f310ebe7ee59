package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/types"
)

// expiryProximity is the window around the entry instant searched first in AUTO mode.
const expiryProximity = 5 * time.Minute

// ExpiryResolver chooses the expiry traded at an entry instant.
type ExpiryResolver struct {
	ticks    datasource.TickSource
	filter   types.ContractFilter
	config   ExpiryConfig
	location *time.Location
}

func NewExpiryResolver(ticks datasource.TickSource, filter types.ContractFilter, config ExpiryConfig, location *time.Location) *ExpiryResolver {
	return &ExpiryResolver{
		ticks:    ticks,
		filter:   filter,
		config:   config,
		location: location,
	}
}

// Resolve returns the expiry for entry, or None when no candidate exists.
//
// FIXED returns the configured date in canonical form. AUTO looks for expiries
// between entry+days_out and entry+lookahead_days that traded within five
// minutes of entry, widening to the whole calendar day of entry when none did,
// and picks the earliest. Canonical YYYY-MM-DD sorts lexically by date.
func (r *ExpiryResolver) Resolve(ctx context.Context, entry time.Time) (optional.Option[string], error) {
	if r.config.Mode == ExpiryModeFixed {
		if r.config.Date.IsNone() {
			return optional.None[string](), nil
		}

		normalized, err := NormalizeExpiry(r.config.Date.Unwrap())
		if err != nil {
			return optional.None[string](), nil
		}

		return optional.Some(normalized), nil
	}

	local := entry.In(r.location)
	y, m, d := local.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, r.location)
	minExpiry := dayStart.AddDate(0, 0, r.config.DaysOut).Format(dateLayout)
	maxExpiry := dayStart.AddDate(0, 0, r.config.LookaheadDays).Format(dateLayout)

	windows := []types.TimeWindow{
		{Start: entry.Add(-expiryProximity), End: entry.Add(expiryProximity)},
		{Start: dayStart, End: dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)},
	}

	for _, window := range windows {
		expiries, err := r.ticks.ListExpiries(ctx, r.filter, minExpiry, maxExpiry, window)
		if err != nil {
			return optional.None[string](), err
		}

		if best, ok := earliest(expiries); ok {
			return optional.Some(best), nil
		}
	}

	return optional.None[string](), nil
}

// earliest returns the lexically smallest canonical expiry. Rows in any other
// format are ignored.
func earliest(expiries []string) (string, bool) {
	best := ""

	for _, raw := range expiries {
		expiry, err := NormalizeExpiry(raw)
		if err != nil {
			continue
		}

		if best == "" || expiry < best {
			best = expiry
		}
	}

	return best, best != ""
}
