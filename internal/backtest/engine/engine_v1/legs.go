package engine

import (
	"math"

	"github.com/rxtech-lab/argo-options/internal/types"
)

// PickATM returns the index of the strike closest to reference. Equal
// distances resolve to the strike below reference, or above with
// ATMTieBreakAbove. The ladder must be sorted ascending by strike.
func PickATM(ladder []types.Instrument, reference float64, tieBreak ATMTieBreak) (int, bool) {
	if len(ladder) == 0 || math.IsNaN(reference) || math.IsInf(reference, 0) {
		return 0, false
	}

	best := 0
	bestDistance := math.Abs(ladder[0].Strike - reference)

	for i := 1; i < len(ladder); i++ {
		distance := math.Abs(ladder[i].Strike - reference)

		switch {
		case distance < bestDistance:
			best, bestDistance = i, distance
		case distance == bestDistance && tieBreak == ATMTieBreakAbove:
			// strikes ascend, so a later equal distance lies above reference
			best = i
		}
	}

	return best, true
}

// PickByMoneyness offsets the ATM index by the moneyness steps. For puts ITM
// strikes are higher and OTM strikes lower; calls are the mirror image. An
// index outside the ladder yields false.
func PickByMoneyness(ladder []types.Instrument, atm int, moneyness types.Moneyness, optionType types.OptionType) (types.Instrument, bool) {
	direction := 0

	switch moneyness.Type {
	case types.MoneynessITM:
		direction = 1
	case types.MoneynessOTM:
		direction = -1
	}

	if optionType == types.OptionTypeCall {
		direction = -direction
	}

	index := atm + direction*moneyness.Steps
	if index < 0 || index >= len(ladder) {
		return types.Instrument{}, false
	}

	return ladder[index], true
}
