package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// Indicator is a pure transform from an ordered candle sequence to a
// same-length sequence of indicator states. Implementations keep no state
// between Compute calls besides their configuration.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Config sets the indicator parameters. Each indicator documents its own parameters.
	Config(params ...any) error
	// Compute returns one state per candle. A state is None until the indicator
	// is seeded, and again after an invalid candle until it re-seeds.
	Compute(candles []types.Candle) ([]optional.Option[types.IndicatorState], error)
}

// Annotate runs the indicator once over candles and zips the result back in.
func Annotate(indicator Indicator, candles []types.Candle) ([]types.AnnotatedCandle, error) {
	states, err := indicator.Compute(candles)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute %s", indicator.Name())
	}

	if len(states) != len(candles) {
		return nil, errors.Newf(errors.ErrCodeIndicatorCalculation,
			"%s returned %d states for %d candles", indicator.Name(), len(states), len(candles))
	}

	annotated := make([]types.AnnotatedCandle, len(candles))
	for i, candle := range candles {
		annotated[i] = types.AnnotatedCandle{Candle: candle, State: states[i]}
	}

	return annotated, nil
}

// segmentFunc computes states for a run of consecutive valid candles.
type segmentFunc func(segment []types.Candle) []optional.Option[types.IndicatorState]

// computeSegments splits candles at invalid entries, computes every valid run
// independently and marks the trend flips. Invalid candles stay None.
func computeSegments(candles []types.Candle, compute segmentFunc) []optional.Option[types.IndicatorState] {
	states := make([]optional.Option[types.IndicatorState], len(candles))
	for i := range states {
		states[i] = optional.None[types.IndicatorState]()
	}

	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}

		copy(states[start:end], compute(candles[start:end]))
		start = -1
	}

	for i, candle := range candles {
		if !candle.IsValid() {
			flush(i)

			continue
		}

		if start < 0 {
			start = i
		}
	}

	flush(len(candles))
	markFlips(states)

	return states
}

// markFlips sets BuySignal/SellSignal on every candle whose trend differs from
// the previous candle's. A candle after a None state never signals.
func markFlips(states []optional.Option[types.IndicatorState]) {
	for i := 1; i < len(states); i++ {
		if states[i].IsNone() || states[i-1].IsNone() {
			continue
		}

		prev := states[i-1].Unwrap()
		curr := states[i].Unwrap()

		curr.BuySignal = false
		curr.SellSignal = false

		if prev.Trend != curr.Trend {
			curr.BuySignal = curr.Trend == types.TrendUp
			curr.SellSignal = curr.Trend == types.TrendDown
		}

		states[i] = optional.Some(curr)
	}
}

// trendAbove returns UP when value > reference, DOWN otherwise.
func trendAbove(value, reference float64) types.TrendDirection {
	if value > reference {
		return types.TrendUp
	}

	return types.TrendDown
}

func closes(candles []types.Candle) []float64 {
	values := make([]float64, len(candles))
	for i, candle := range candles {
		values[i] = candle.Close
	}

	return values
}

// intParam reads an int parameter, accepting whole float64 values from YAML.
func intParam(value any, name string) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected int", name)
		}

		return int(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected int", name)
	}
}

func positivePeriod(value any, name string) (int, error) {
	period, err := intParam(value, name)
	if err != nil {
		return 0, err
	}

	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %d", name, period)
	}

	return period, nil
}
