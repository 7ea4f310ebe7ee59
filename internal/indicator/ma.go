package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// MA indicator implements Simple Moving Average calculation.
type MA struct {
	period int
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	return &MA{
		period: 20, // Default period
	}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Expected parameters: period (int).
func (m *MA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := positivePeriod(params[0], "period")
	if err != nil {
		return err
	}

	m.period = period

	return nil
}

// Compute implements Indicator.
func (m *MA) Compute(candles []types.Candle) ([]optional.Option[types.IndicatorState], error) {
	return computeSegments(candles, func(segment []types.Candle) []optional.Option[types.IndicatorState] {
		prices := closes(segment)

		return mapDefined(smaSeries(prices, m.period), func(i int, ma float64) types.IndicatorState {
			return types.IndicatorState{
				Trend:  trendAbove(prices[i], ma),
				Values: map[string]float64{"ma": ma},
			}
		})
	}), nil
}

// smaSeries is the rolling simple average over period values.
func smaSeries(values []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(values))

	sum := 0.0

	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i < period-1 {
			out[i] = optional.None[float64]()

			continue
		}

		out[i] = optional.Some(sum / float64(period))
	}

	return out
}
