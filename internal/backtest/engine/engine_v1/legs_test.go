package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/stretchr/testify/suite"
)

type LegSelectorTestSuite struct {
	suite.Suite
}

func TestLegSelectorSuite(t *testing.T) {
	suite.Run(t, new(LegSelectorTestSuite))
}

func ladderOf(strikes ...float64) []types.Instrument {
	ladder := make([]types.Instrument, 0, len(strikes))
	for _, strike := range strikes {
		ladder = append(ladder, types.Instrument{ID: fmt.Sprintf("P-%g", strike), Strike: strike, OptionType: types.OptionTypePut})
	}

	return ladder
}

func (suite *LegSelectorTestSuite) TestPickATM() {
	ladder := ladderOf(21900, 22000, 22100, 22200)

	tests := []struct {
		name      string
		reference float64
		tieBreak  ATMTieBreak
		expected  int
	}{
		{name: "exact strike", reference: 22000, tieBreak: ATMTieBreakBelow, expected: 1},
		{name: "closer to upper", reference: 22070, tieBreak: ATMTieBreakBelow, expected: 2},
		{name: "closer to lower", reference: 22020, tieBreak: ATMTieBreakBelow, expected: 1},
		{name: "tie prefers below", reference: 22050, tieBreak: ATMTieBreakBelow, expected: 1},
		{name: "tie prefers above when configured", reference: 22050, tieBreak: ATMTieBreakAbove, expected: 2},
		{name: "below the ladder", reference: 10000, tieBreak: ATMTieBreakBelow, expected: 0},
		{name: "above the ladder", reference: 90000, tieBreak: ATMTieBreakBelow, expected: 3},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			index, ok := PickATM(ladder, tc.reference, tc.tieBreak)
			suite.True(ok)
			suite.Equal(tc.expected, index)
		})
	}
}

func (suite *LegSelectorTestSuite) TestPickATMRejectsEmptyLadderAndBadReference() {
	_, ok := PickATM(nil, 100, ATMTieBreakBelow)
	suite.False(ok)

	_, ok = PickATM(ladderOf(100), math.NaN(), ATMTieBreakBelow)
	suite.False(ok)

	_, ok = PickATM(ladderOf(100), math.Inf(1), ATMTieBreakBelow)
	suite.False(ok)
}

// Random ladders: the pick has minimal distance and an exact tie resolves to a strike <= reference.
func (suite *LegSelectorTestSuite) TestPickATMMinimalDistanceProperty() {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 500; round++ {
		count := 1 + rng.Intn(12)
		seen := make(map[float64]bool)

		var strikes []float64

		for len(strikes) < count {
			strike := float64(50 * (1 + rng.Intn(60)))
			if !seen[strike] {
				seen[strike] = true
				strikes = append(strikes, strike)
			}
		}

		sort.Float64s(strikes)
		ladder := ladderOf(strikes...)

		// odd multiples of 25 can sit exactly between two strikes
		reference := float64(25 * rng.Intn(130))

		index, ok := PickATM(ladder, reference, ATMTieBreakBelow)
		suite.Require().True(ok)

		best := math.Abs(ladder[index].Strike - reference)
		for _, instrument := range ladder {
			distance := math.Abs(instrument.Strike - reference)
			suite.LessOrEqual(best, distance)

			if distance == best && instrument.Strike != ladder[index].Strike {
				suite.LessOrEqual(ladder[index].Strike, reference, "tie must resolve to the strike at or below the reference")
			}
		}
	}
}

func (suite *LegSelectorTestSuite) TestPickByMoneyness() {
	ladder := ladderOf(21800, 21900, 22000, 22100, 22200)
	atm := 2

	tests := []struct {
		name       string
		moneyness  types.Moneyness
		optionType types.OptionType
		expected   float64
		ok         bool
	}{
		{name: "ATM put", moneyness: types.Moneyness{Type: types.MoneynessATM}, optionType: types.OptionTypePut, expected: 22000, ok: true},
		{name: "ATM call", moneyness: types.Moneyness{Type: types.MoneynessATM}, optionType: types.OptionTypeCall, expected: 22000, ok: true},
		{name: "ITM put is higher", moneyness: types.Moneyness{Type: types.MoneynessITM, Steps: 1}, optionType: types.OptionTypePut, expected: 22100, ok: true},
		{name: "OTM put is lower", moneyness: types.Moneyness{Type: types.MoneynessOTM, Steps: 2}, optionType: types.OptionTypePut, expected: 21800, ok: true},
		{name: "ITM call is lower", moneyness: types.Moneyness{Type: types.MoneynessITM, Steps: 1}, optionType: types.OptionTypeCall, expected: 21900, ok: true},
		{name: "OTM call is higher", moneyness: types.Moneyness{Type: types.MoneynessOTM, Steps: 2}, optionType: types.OptionTypeCall, expected: 22200, ok: true},
		{name: "ITM put out of range", moneyness: types.Moneyness{Type: types.MoneynessITM, Steps: 3}, optionType: types.OptionTypePut, ok: false},
		{name: "OTM put out of range", moneyness: types.Moneyness{Type: types.MoneynessOTM, Steps: 3}, optionType: types.OptionTypePut, ok: false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			instrument, ok := PickByMoneyness(ladder, atm, tc.moneyness, tc.optionType)
			suite.Equal(tc.ok, ok)

			if tc.ok {
				suite.Equal(tc.expected, instrument.Strike)
			}
		})
	}
}

func (suite *LegSelectorTestSuite) TestPickByMoneynessATMIsIdentity() {
	ladder := ladderOf(100, 200, 300, 400)

	for atm := range ladder {
		for _, optionType := range []types.OptionType{types.OptionTypePut, types.OptionTypeCall} {
			instrument, ok := PickByMoneyness(ladder, atm, types.Moneyness{Type: types.MoneynessATM}, optionType)
			suite.True(ok)
			suite.Equal(ladder[atm], instrument)
		}
	}
}
