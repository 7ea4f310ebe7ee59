package types

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
)

// Candle is one OHLCV bar of the underlying. Time is the bar's open instant.
type Candle struct {
	Symbol string    `json:"symbol" yaml:"symbol" csv:"symbol"`
	Time   time.Time `json:"time" yaml:"time" csv:"time"`
	Open   float64   `json:"open" yaml:"open" csv:"open"`
	High   float64   `json:"high" yaml:"high" csv:"high"`
	Low    float64   `json:"low" yaml:"low" csv:"low"`
	Close  float64   `json:"close" yaml:"close" csv:"close"`
	Volume float64   `json:"volume" yaml:"volume" csv:"volume"`
}

// IsValid reports whether every price is finite and positive and High >= Low.
func (c Candle) IsValid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}

	return c.High >= c.Low
}

// MidPrice returns (high+low)/2.
func (c Candle) MidPrice() float64 {
	return (c.High + c.Low) / 2
}

// AnnotatedCandle is a candle plus the indicator state computed for it.
// State is None during warmup or after an invalid candle.
type AnnotatedCandle struct {
	Candle
	State optional.Option[IndicatorState] `json:"state"`
}

// BuySignal reports whether this candle carries a buy flip.
func (c AnnotatedCandle) BuySignal() bool {
	return c.State.IsSome() && c.State.Unwrap().BuySignal
}

// SellSignal reports whether this candle carries a sell flip.
func (c AnnotatedCandle) SellSignal() bool {
	return c.State.IsSome() && c.State.Unwrap().SellSignal
}

// IsTrend reports whether the candle has a defined state with the given trend.
func (c AnnotatedCandle) IsTrend(direction TrendDirection) bool {
	return c.State.IsSome() && c.State.Unwrap().Trend == direction
}
