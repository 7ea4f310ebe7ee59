package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
)

// trueRanges returns the true range of every candle. The first candle has no
// previous close, so its true range is high-low.
func trueRanges(candles []types.Candle) []float64 {
	ranges := make([]float64, len(candles))
	for i, candle := range candles {
		if i == 0 {
			ranges[i] = candle.High - candle.Low

			continue
		}

		prevClose := candles[i-1].Close
		ranges[i] = math.Max(
			candle.High-candle.Low,
			math.Max(math.Abs(candle.High-prevClose), math.Abs(candle.Low-prevClose)),
		)
	}

	return ranges
}

// averageTrueRange smooths true ranges over period. Both modes seed with the
// simple average of the first period values; Wilder then continues with
// (prev*(period-1)+tr)/period, otherwise a rolling simple average is used.
func averageTrueRange(candles []types.Candle, period int, wilder bool) []optional.Option[float64] {
	ranges := trueRanges(candles)
	if !wilder {
		return smaSeries(ranges, period)
	}

	return wilderSeries(ranges, period)
}

// wilderSeries is Wilder's running moving average seeded by a simple average.
func wilderSeries(values []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(values))

	var (
		sum  float64
		prev float64
	)

	for i, v := range values {
		switch {
		case i < period-1:
			sum += v
			out[i] = optional.None[float64]()
		case i == period-1:
			sum += v
			prev = sum / float64(period)
			out[i] = optional.Some(prev)
		default:
			prev = (prev*float64(period-1) + v) / float64(period)
			out[i] = optional.Some(prev)
		}
	}

	return out
}
