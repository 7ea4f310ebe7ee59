package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// EMA indicator implements Exponential Moving Average calculation. The trend is
// UP while the close is above the average.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator with default configuration.
func NewEMA() Indicator {
	return &EMA{
		period: 20, // Default period
	}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config configures the EMA indicator. Expected parameters: period (int).
func (e *EMA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := positivePeriod(params[0], "period")
	if err != nil {
		return err
	}

	e.period = period

	return nil
}

// Compute implements Indicator.
func (e *EMA) Compute(candles []types.Candle) ([]optional.Option[types.IndicatorState], error) {
	return computeSegments(candles, func(segment []types.Candle) []optional.Option[types.IndicatorState] {
		prices := closes(segment)

		return mapDefined(emaSeries(prices, e.period), func(i int, ema float64) types.IndicatorState {
			return types.IndicatorState{
				Trend:  trendAbove(prices[i], ema),
				Values: map[string]float64{"ema": ema},
			}
		})
	}), nil
}

// emaSeries seeds with the simple average of the first period values and
// continues with alpha = 2/(period+1), matching pandas ewm(adjust=False).
func emaSeries(values []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(values))
	alpha := 2.0 / float64(period+1)

	var (
		sum float64
		ema float64
	)

	for i, v := range values {
		switch {
		case i < period-1:
			sum += v
			out[i] = optional.None[float64]()
		case i == period-1:
			sum += v
			ema = sum / float64(period)
			out[i] = optional.Some(ema)
		default:
			ema = v*alpha + ema*(1-alpha)
			out[i] = optional.Some(ema)
		}
	}

	return out
}

// mapDefined converts every defined value to a state and keeps None elsewhere.
func mapDefined(values []optional.Option[float64], toState func(i int, v float64) types.IndicatorState) []optional.Option[types.IndicatorState] {
	states := make([]optional.Option[types.IndicatorState], len(values))
	for i, v := range values {
		if v.IsNone() {
			states[i] = optional.None[types.IndicatorState]()

			continue
		}

		states[i] = optional.Some(toState(i, v.Unwrap()))
	}

	return states
}
