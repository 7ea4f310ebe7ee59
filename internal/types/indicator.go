package types

type IndicatorType string

const (
	IndicatorTypeSupertrend IndicatorType = "supertrend"
	IndicatorTypeEMA        IndicatorType = "ema"
	IndicatorTypeMA         IndicatorType = "ma"
	IndicatorTypeRSI        IndicatorType = "rsi"
	IndicatorTypeMACD       IndicatorType = "macd"
)

// TrendDirection is the single tagged trend value every indicator produces.
type TrendDirection string

const (
	TrendUp   TrendDirection = "UP"
	TrendDown TrendDirection = "DOWN"
)

// IndicatorState is the per-candle output of an indicator.
//
// BuySignal and SellSignal are true only on the candle where Trend flips
// relative to the previous defined candle. Values carries the
// indicator-specific numbers (bands, averages) keyed by name.
type IndicatorState struct {
	Trend      TrendDirection     `json:"trend"`
	BuySignal  bool               `json:"buy_signal"`
	SellSignal bool               `json:"sell_signal"`
	Values     map[string]float64 `json:"values,omitempty"`
}
