package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

const (
	SupertrendValueATR        = "atr"
	SupertrendValueUpperBand  = "upper_band"
	SupertrendValueLowerBand  = "lower_band"
	SupertrendValueActiveLine = "active_line"
)

// Supertrend is an ATR band trend follower. The trend flips from DOWN to UP when
// the close breaks above the previous final upper band and from UP to DOWN when
// the close breaks below the previous final lower band.
type Supertrend struct {
	atrPeriod  int
	multiplier float64
	useWilder  bool
}

// NewSupertrend creates a Supertrend with period 10, multiplier 3 and Wilder smoothing.
func NewSupertrend() Indicator {
	return &Supertrend{
		atrPeriod:  10,
		multiplier: 3,
		useWilder:  true,
	}
}

// Name returns the name of the indicator.
func (s *Supertrend) Name() types.IndicatorType {
	return types.IndicatorTypeSupertrend
}

// Config configures the indicator. Expected parameters: atrPeriod (int),
// multiplier (float64, optional), useWilder (bool, optional).
func (s *Supertrend) Config(params ...any) error {
	if len(params) < 1 || len(params) > 3 {
		return errors.New(errors.ErrCodeMissingParameter,
			"Config expects 1 to 3 parameters: atrPeriod (int), multiplier (float64), useWilder (bool)")
	}

	period, err := positivePeriod(params[0], "atrPeriod")
	if err != nil {
		return err
	}

	multiplier := s.multiplier

	if len(params) >= 2 {
		switch v := params[1].(type) {
		case float64:
			multiplier = v
		case int:
			multiplier = float64(v)
		default:
			return errors.New(errors.ErrCodeInvalidType, "invalid type for multiplier parameter, expected float64")
		}

		if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
			return errors.Newf(errors.ErrCodeInvalidMultiplier, "multiplier must be a positive number, got %v", multiplier)
		}
	}

	useWilder := s.useWilder

	if len(params) == 3 {
		v, ok := params[2].(bool)
		if !ok {
			return errors.New(errors.ErrCodeInvalidType, "invalid type for useWilder parameter, expected bool")
		}

		useWilder = v
	}

	s.atrPeriod = period
	s.multiplier = multiplier
	s.useWilder = useWilder

	return nil
}

// Compute implements Indicator.
func (s *Supertrend) Compute(candles []types.Candle) ([]optional.Option[types.IndicatorState], error) {
	return computeSegments(candles, s.computeSegment), nil
}

func (s *Supertrend) computeSegment(candles []types.Candle) []optional.Option[types.IndicatorState] {
	states := make([]optional.Option[types.IndicatorState], len(candles))
	atr := averageTrueRange(candles, s.atrPeriod, s.useWilder)

	var (
		seeded     bool
		finalUpper float64
		finalLower float64
		trend      types.TrendDirection
	)

	for i, candle := range candles {
		if atr[i].IsNone() {
			states[i] = optional.None[types.IndicatorState]()

			continue
		}

		atrValue := atr[i].Unwrap()
		basicUpper := candle.MidPrice() + s.multiplier*atrValue
		basicLower := candle.MidPrice() - s.multiplier*atrValue

		if !seeded {
			finalUpper = basicUpper
			finalLower = basicLower
			trend = types.TrendDown
			seeded = true
		} else {
			prevClose := candles[i-1].Close
			prevUpper := finalUpper
			prevLower := finalLower

			if basicUpper < prevUpper || prevClose > prevUpper {
				finalUpper = basicUpper
			}

			if basicLower > prevLower || prevClose < prevLower {
				finalLower = basicLower
			}

			switch {
			case trend == types.TrendDown && candle.Close > prevUpper:
				trend = types.TrendUp
			case trend == types.TrendUp && candle.Close < prevLower:
				trend = types.TrendDown
			}
		}

		active := finalUpper
		if trend == types.TrendUp {
			active = finalLower
		}

		states[i] = optional.Some(types.IndicatorState{
			Trend: trend,
			Values: map[string]float64{
				SupertrendValueATR:        atrValue,
				SupertrendValueUpperBand:  finalUpper,
				SupertrendValueLowerBand:  finalLower,
				SupertrendValueActiveLine: active,
			},
		})
	}

	return states
}
