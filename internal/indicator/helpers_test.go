package indicator

import (
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
)

var testStart = time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)

// candlesFromCloses builds one-minute candles with a fixed 1.0 high-low range around each close.
func candlesFromCloses(values ...float64) []types.Candle {
	candles := make([]types.Candle, len(values))
	for i, c := range values {
		candles[i] = types.Candle{
			Symbol: "NIFTY",
			Time:   testStart.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}

	return candles
}

// flatThenRising returns flat closes at 100 followed by closes rising by 2 per candle.
func flatThenRising(flat, rising int) []float64 {
	values := make([]float64, 0, flat+rising)
	for i := 0; i < flat; i++ {
		values = append(values, 100)
	}

	for i := 1; i <= rising; i++ {
		values = append(values, 100+2*float64(i))
	}

	return values
}
