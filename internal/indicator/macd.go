package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// MACD compares the MACD line (fast EMA - slow EMA) against its signal EMA.
// The trend is UP while the MACD line is above the signal line.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator with the conventional 12/26/9 periods.
func NewMACD() Indicator {
	return &MACD{
		fastPeriod:   12,
		slowPeriod:   26,
		signalPeriod: 9,
	}
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the MACD indicator.
// Expected parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int).
func (m *MACD) Config(params ...any) error {
	if len(params) != 3 {
		return errors.New(errors.ErrCodeMissingParameter,
			"Config expects 3 parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int)")
	}

	fast, err := positivePeriod(params[0], "fastPeriod")
	if err != nil {
		return err
	}

	slow, err := positivePeriod(params[1], "slowPeriod")
	if err != nil {
		return err
	}

	signal, err := positivePeriod(params[2], "signalPeriod")
	if err != nil {
		return err
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "fastPeriod (%d) must be less than slowPeriod (%d)", fast, slow)
	}

	m.fastPeriod = fast
	m.slowPeriod = slow
	m.signalPeriod = signal

	return nil
}

// Compute implements Indicator.
func (m *MACD) Compute(candles []types.Candle) ([]optional.Option[types.IndicatorState], error) {
	return computeSegments(candles, m.computeSegment), nil
}

func (m *MACD) computeSegment(candles []types.Candle) []optional.Option[types.IndicatorState] {
	prices := closes(candles)
	fast := emaSeries(prices, m.fastPeriod)
	slow := emaSeries(prices, m.slowPeriod)

	// the MACD line starts where the slow EMA does
	offset := m.slowPeriod - 1
	line := make([]float64, 0, len(prices))

	for i := offset; i < len(prices); i++ {
		line = append(line, fast[i].Unwrap()-slow[i].Unwrap())
	}

	signal := emaSeries(line, m.signalPeriod)
	states := make([]optional.Option[types.IndicatorState], len(prices))

	for i := range states {
		j := i - offset
		if j < 0 || signal[j].IsNone() {
			states[i] = optional.None[types.IndicatorState]()

			continue
		}

		macd := line[j]
		sig := signal[j].Unwrap()
		states[i] = optional.Some(types.IndicatorState{
			Trend: trendAbove(macd, sig),
			Values: map[string]float64{
				"macd":      macd,
				"signal":    sig,
				"histogram": macd - sig,
			},
		})
	}

	return states
}
