package indicator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SupertrendTestSuite struct {
	suite.Suite
}

func TestSupertrendSuite(t *testing.T) {
	suite.Run(t, new(SupertrendTestSuite))
}

func (suite *SupertrendTestSuite) newSupertrend(params ...any) Indicator {
	st := NewSupertrend()
	suite.Require().NoError(st.Config(params...))

	return st
}

func (suite *SupertrendTestSuite) TestDefaults() {
	st := NewSupertrend().(*Supertrend)
	suite.Equal(10, st.atrPeriod)
	suite.Equal(3.0, st.multiplier)
	suite.True(st.useWilder)
	suite.Equal(types.IndicatorTypeSupertrend, st.Name())
}

func (suite *SupertrendTestSuite) TestConfig() {
	tests := []struct {
		name     string
		params   []any
		wantCode errors.ErrorCode
	}{
		{name: "no params", params: nil, wantCode: errors.ErrCodeMissingParameter},
		{name: "too many params", params: []any{10, 3.0, true, 1}, wantCode: errors.ErrCodeMissingParameter},
		{name: "zero period", params: []any{0}, wantCode: errors.ErrCodeInvalidPeriod},
		{name: "period wrong type", params: []any{"10"}, wantCode: errors.ErrCodeInvalidType},
		{name: "zero multiplier", params: []any{10, 0.0}, wantCode: errors.ErrCodeInvalidMultiplier},
		{name: "nan multiplier", params: []any{10, math.NaN()}, wantCode: errors.ErrCodeInvalidMultiplier},
		{name: "wilder wrong type", params: []any{10, 3.0, "yes"}, wantCode: errors.ErrCodeInvalidType},
		{name: "valid", params: []any{7, 2, false}},
		{name: "period from yaml float", params: []any{7.0}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			err := NewSupertrend().Config(tc.params...)
			if tc.wantCode == 0 {
				suite.NoError(err)

				return
			}

			suite.Error(err)
			suite.Equal(tc.wantCode, errors.GetCode(err))
		})
	}
}

func (suite *SupertrendTestSuite) TestSeedsAfterPeriod() {
	st := suite.newSupertrend(10, 3.0, true)

	states, err := st.Compute(candlesFromCloses(flatThenRising(10, 0)...))
	suite.Require().NoError(err)
	suite.Len(states, 10)

	for i := 0; i < 9; i++ {
		suite.True(states[i].IsNone(), "index %d", i)
	}

	seed := states[9].Unwrap()
	suite.Equal(types.TrendDown, seed.Trend)
	suite.False(seed.BuySignal)
	suite.False(seed.SellSignal)
	suite.InDelta(1.0, seed.Values[SupertrendValueATR], 1e-9)
	suite.InDelta(103.0, seed.Values[SupertrendValueUpperBand], 1e-9)
	suite.InDelta(97.0, seed.Values[SupertrendValueLowerBand], 1e-9)
	suite.InDelta(103.0, seed.Values[SupertrendValueActiveLine], 1e-9)
}

func (suite *SupertrendTestSuite) TestRisingSeriesFlipsUpOnce() {
	st := suite.newSupertrend(10, 3.0, true)

	states, err := st.Compute(candlesFromCloses(flatThenRising(10, 30)...))
	suite.Require().NoError(err)

	buys, sells := 0, 0
	buyIndex := -1

	for i, state := range states {
		if state.IsNone() {
			continue
		}

		if state.Unwrap().BuySignal {
			buys++
			buyIndex = i
		}

		if state.Unwrap().SellSignal {
			sells++
		}
	}

	suite.Equal(1, buys)
	suite.Equal(0, sells)
	// close 104 is the first to break the seeded upper band of 103
	suite.Equal(11, buyIndex)

	last := states[len(states)-1].Unwrap()
	suite.Equal(types.TrendUp, last.Trend)
	suite.Equal(last.Values[SupertrendValueLowerBand], last.Values[SupertrendValueActiveLine])
}

func (suite *SupertrendTestSuite) TestFallingAfterRiseFlipsDown() {
	values := flatThenRising(10, 10)
	top := values[len(values)-1]

	for i := 1; i <= 15; i++ {
		values = append(values, top-3*float64(i))
	}

	states, err := suite.newSupertrend(10, 3.0, true).Compute(candlesFromCloses(values...))
	suite.Require().NoError(err)

	sells := 0

	for _, state := range states {
		if state.IsSome() && state.Unwrap().SellSignal {
			sells++
		}
	}

	suite.Equal(1, sells)
	suite.Equal(types.TrendDown, states[len(states)-1].Unwrap().Trend)
}

func (suite *SupertrendTestSuite) TestSignalIffTrendChanges() {
	rng := rand.New(rand.NewSource(42))

	for _, wilder := range []bool{true, false} {
		price := 100.0
		values := make([]float64, 500)

		for i := range values {
			price += rng.NormFloat64() * 2
			price = math.Max(price, 5)
			values[i] = price
		}

		candles := candlesFromCloses(values...)
		// a couple of gaps to exercise re-seeding
		candles[120].High = math.NaN()
		candles[300].Low = -1

		states, err := suite.newSupertrend(5, 1.5, wilder).Compute(candles)
		suite.Require().NoError(err)
		suite.Require().Len(states, len(candles))

		flips := 0

		for i := 1; i < len(states); i++ {
			if states[i].IsNone() {
				continue
			}

			curr := states[i].Unwrap()
			suite.False(curr.BuySignal && curr.SellSignal)

			changed := states[i-1].IsSome() && states[i-1].Unwrap().Trend != curr.Trend
			suite.Equal(changed, curr.BuySignal || curr.SellSignal, "index %d", i)

			if changed {
				flips++
				suite.Equal(curr.Trend == types.TrendUp, curr.BuySignal)
			}
		}

		suite.Greater(flips, 0)
	}
}

func (suite *SupertrendTestSuite) TestInvalidCandleReseeds() {
	candles := candlesFromCloses(flatThenRising(30, 0)...)
	candles[15].Close = math.Inf(1)

	states, err := suite.newSupertrend(5, 3.0, true).Compute(candles)
	suite.Require().NoError(err)

	suite.True(states[14].IsSome())
	suite.True(states[15].IsNone())

	// four more candles are needed before the window is full again
	for i := 16; i < 20; i++ {
		suite.True(states[i].IsNone(), "index %d", i)
	}

	reseeded := states[20].Unwrap()
	suite.Equal(types.TrendDown, reseeded.Trend)
	suite.False(reseeded.BuySignal || reseeded.SellSignal)
}

func (suite *SupertrendTestSuite) TestSimpleAverageATR() {
	// true ranges: 1 for the flat part, then 2.5 while rising
	states, err := suite.newSupertrend(2, 3.0, false).Compute(candlesFromCloses(100, 100, 102, 104))
	suite.Require().NoError(err)

	suite.InDelta(1.0, states[1].Unwrap().Values[SupertrendValueATR], 1e-9)
	suite.InDelta(1.75, states[2].Unwrap().Values[SupertrendValueATR], 1e-9)
	suite.InDelta(2.5, states[3].Unwrap().Values[SupertrendValueATR], 1e-9)
}

func (suite *SupertrendTestSuite) TestEmptyInput() {
	states, err := NewSupertrend().Compute(nil)
	suite.NoError(err)
	suite.Empty(states)
}

func (suite *SupertrendTestSuite) TestStateless() {
	st := suite.newSupertrend(10, 3.0, true)
	candles := candlesFromCloses(flatThenRising(10, 20)...)

	first, err := st.Compute(candles)
	suite.Require().NoError(err)

	second, err := st.Compute(candles)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Equal(optional.None[types.IndicatorState](), first[0])
}
