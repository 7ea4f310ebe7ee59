package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// RSI represents the Relative Strength Index indicator. The trend is UP while
// the RSI is above the midline.
type RSI struct {
	period  int
	midline float64
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	return &RSI{
		period:  14, // Default period
		midline: 50,
	}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int), midline (float64, optional).
func (r *RSI) Config(params ...any) error {
	if len(params) < 1 || len(params) > 2 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects at least 1 parameter: period (int)")
	}

	period, err := positivePeriod(params[0], "period")
	if err != nil {
		return err
	}

	r.period = period

	if len(params) == 2 {
		midline, ok := params[1].(float64)
		if !ok {
			return errors.New(errors.ErrCodeInvalidType, "invalid type for midline parameter, expected float64")
		}

		if midline <= 0 || midline >= 100 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "midline must be between 0 and 100, got %v", midline)
		}

		r.midline = midline
	}

	return nil
}

// Compute implements Indicator.
func (r *RSI) Compute(candles []types.Candle) ([]optional.Option[types.IndicatorState], error) {
	return computeSegments(candles, func(segment []types.Candle) []optional.Option[types.IndicatorState] {
		return mapDefined(rsiSeries(closes(segment), r.period), func(_ int, rsi float64) types.IndicatorState {
			return types.IndicatorState{
				Trend:  trendAbove(rsi, r.midline),
				Values: map[string]float64{"rsi": rsi},
			}
		})
	}), nil
}

// rsiSeries uses Wilder smoothing of gains and losses. The first value is
// defined once period price changes exist.
func rsiSeries(prices []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(prices))
	if len(prices) == 0 {
		return out
	}

	out[0] = optional.None[float64]()
	gains := make([]float64, 0, len(prices))
	losses := make([]float64, 0, len(prices))

	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gains = append(gains, max(change, 0))
		losses = append(losses, max(-change, 0))
	}

	avgGain := wilderSeries(gains, period)
	avgLoss := wilderSeries(losses, period)

	for i := range gains {
		if avgGain[i].IsNone() {
			out[i+1] = optional.None[float64]()

			continue
		}

		gain := avgGain[i].Unwrap()
		loss := avgLoss[i].Unwrap()

		switch {
		case loss == 0 && gain == 0:
			out[i+1] = optional.Some(50.0)
		case loss == 0:
			out[i+1] = optional.Some(100.0)
		default:
			out[i+1] = optional.Some(100 - 100/(1+gain/loss))
		}
	}

	return out
}
