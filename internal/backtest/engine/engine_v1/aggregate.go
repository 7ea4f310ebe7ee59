package engine

import (
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/shopspring/decimal"
)

// Summarize folds the result rows of a run into a RunSummary. Only taken
// trades are counted. Figures are rounded to precision decimals.
func Summarize(trades []types.Trade, precision int) types.RunSummary {
	var (
		total, wins, losses int
		cumulative          = decimal.Zero
	)

	for _, trade := range trades {
		if !trade.Took {
			continue
		}

		total++

		pnl := decimal.NewFromFloat(trade.NetPnl)
		cumulative = cumulative.Add(pnl)

		switch pnl.Sign() {
		case 1:
			wins++
		case -1:
			losses++
		}
	}

	return summary(total, wins, losses, cumulative, precision)
}

// Overall folds several run summaries. Counts and P&L are summed and the
// rates recomputed from the sums.
func Overall(runs []types.RunResult, precision int) types.RunSummary {
	var (
		total, wins, losses int
		cumulative          = decimal.Zero
	)

	for _, run := range runs {
		total += run.Summary.TotalTrades
		wins += run.Summary.Wins
		losses += run.Summary.Losses
		cumulative = cumulative.Add(decimal.NewFromFloat(run.Summary.CumulativePnl))
	}

	return summary(total, wins, losses, cumulative, precision)
}

func summary(total, wins, losses int, cumulative decimal.Decimal, precision int) types.RunSummary {
	places := int32(precision)

	result := types.RunSummary{
		TotalTrades:   total,
		Wins:          wins,
		Losses:        losses,
		Breakeven:     total - wins - losses,
		CumulativePnl: cumulative.Round(places).InexactFloat64(),
	}

	if total == 0 {
		return result
	}

	count := decimal.NewFromInt(int64(total))
	hundred := decimal.NewFromInt(100)

	result.WinRatePct = decimal.NewFromInt(int64(wins)).Mul(hundred).Div(count).Round(places).InexactFloat64()
	result.LossRatePct = decimal.NewFromInt(int64(losses)).Mul(hundred).Div(count).Round(places).InexactFloat64()
	result.AvgPnlPerTrade = cumulative.Div(count).Round(places).InexactFloat64()

	return result
}
