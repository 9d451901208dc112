package report

import (
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/shopspring/decimal"
)

// Summarize aggregates trip rows. MaximumLoss and MaximumProfit are the smallest and largest trip pnl.
func Summarize(rows []types.TripRow) types.TripSummary {
	summary := types.TripSummary{ExitReasons: map[string]int{}}
	if len(rows) == 0 {
		return summary
	}

	total := decimal.Zero
	shares := decimal.Zero
	days := 0

	for i, row := range rows {
		pnl := decimal.NewFromFloat(row.PnL)
		total = total.Add(pnl)
		// entry and exit both trade the position size
		shares = shares.Add(decimal.NewFromFloat(row.Shares).Abs().Mul(decimal.NewFromInt(2)))
		days += row.DaysOpen

		switch pnl.Sign() {
		case 1:
			summary.NumberOfWinningTrips++
		case -1:
			summary.NumberOfLosingTrips++
		}

		if i == 0 || row.PnL < summary.MaximumLoss {
			summary.MaximumLoss = row.PnL
		}

		if i == 0 || row.PnL > summary.MaximumProfit {
			summary.MaximumProfit = row.PnL
		}

		summary.ExitReasons[row.ExitReason]++
	}

	summary.NumberOfTrips = len(rows)
	summary.WinRate = float64(summary.NumberOfWinningTrips) / float64(len(rows))
	summary.TotalPnL, _ = total.Float64()
	summary.TotalShares, _ = shares.Float64()
	summary.AverageDaysOpen = float64(days) / float64(len(rows))

	return summary
}

// TransactionSummary totals the raw fill feed.
type TransactionSummary struct {
	Count           int     `yaml:"count" json:"count"`
	TotalShares     float64 `yaml:"total_shares" json:"total_shares"`
	TotalCommission float64 `yaml:"total_commission" json:"total_commission"`
	// Bought is the notional of buy fills, Sold the (negative) notional of sell fills.
	Bought float64 `yaml:"bought" json:"bought"`
	Sold   float64 `yaml:"sold" json:"sold"`
}

func SummarizeTransactions(txs []types.Transaction) TransactionSummary {
	var (
		shares     = decimal.Zero
		commission = decimal.Zero
		bought     = decimal.Zero
		sold       = decimal.Zero
	)

	for _, tx := range txs {
		quantity := decimal.NewFromFloat(tx.Quantity)
		notional := quantity.Mul(decimal.NewFromFloat(tx.Price))

		shares = shares.Add(quantity.Abs())
		commission = commission.Add(decimal.NewFromFloat(tx.Commission))

		if quantity.IsPositive() {
			bought = bought.Add(notional)
		} else {
			sold = sold.Add(notional)
		}
	}

	summary := TransactionSummary{Count: len(txs)}
	summary.TotalShares, _ = shares.Float64()
	summary.TotalCommission, _ = commission.Float64()
	summary.Bought, _ = bought.Float64()
	summary.Sold, _ = sold.Float64()

	return summary
}
