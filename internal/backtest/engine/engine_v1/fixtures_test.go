package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/types"
)

var testDay = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

const testExpiry = "2024-03-07"

func at(hour, minute, second int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

func optionTick(id string, t time.Time, price float64, strike, optionType, expiry string) types.TickRecord {
	return types.TickRecord{
		Tick:         types.Tick{InstrumentID: id, Time: t, Price: price},
		Strike:       strike,
		OptionType:   optionType,
		Expiry:       expiry,
		ContractType: "OPTIDX",
		Asset:        "NIFTY",
		Currency:     "INR",
	}
}

// signalCandle builds an annotated one-minute candle with an explicit state.
func signalCandle(t time.Time, closePrice float64, trend types.TrendDirection, buy, sell bool) types.AnnotatedCandle {
	return types.AnnotatedCandle{
		Candle: types.Candle{
			Symbol: "NIFTY",
			Time:   t,
			Open:   closePrice,
			High:   closePrice + 5,
			Low:    closePrice - 5,
			Close:  closePrice,
			Volume: 100,
		},
		State: optional.Some(types.IndicatorState{Trend: trend, BuySignal: buy, SellSignal: sell}),
	}
}

func tradingDay(candles ...types.AnnotatedCandle) TradingDay {
	return TradingDay{
		Date:    testDay.Format(dateLayout),
		Start:   testDay,
		End:     testDay.AddDate(0, 0, 1).Add(-time.Nanosecond),
		Candles: candles,
	}
}

const baseConfigYAML = `
name: short_put
symbol: NIFTY
timeframe: 1m
start_date: "2024-03-05"
end_date: "2024-03-05"
warmup_candles: 20
indicator:
  name: supertrend
  atr_period: 10
  multiplier: 3
option:
  asset: NIFTY
  currency: INR
  contract_type: OPTIDX
  option_type: PUT
legs:
  - role: MAIN
    side: SHORT
    moneyness:
      type: ATM
      steps: 0
risk:
  stop_loss_pct: 30
expiry:
  mode: FIXED
  date: "2024-03-07"
`

func mustConfig(content string) BacktestConfig {
	config, err := ParseConfig(content)
	if err != nil {
		panic(err)
	}

	return config
}

// chainTicks lists a put ladder 21900..22100 plus one call at 22000 on testDay.
func chainTicks() []types.TickRecord {
	return []types.TickRecord{
		optionTick("P-21900", at(9, 0, 0), 60, "21900", "PE", testExpiry),
		optionTick("P-22000", at(9, 0, 0), 95, "22000", "PE", testExpiry),
		optionTick("P-22100", at(9, 0, 0), 150, "22100", "PE", testExpiry),
		optionTick("C-22000", at(9, 0, 0), 90, "22000", "CE", testExpiry),
	}
}
