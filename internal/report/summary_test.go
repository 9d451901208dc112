package report

import (
	"testing"

	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	rows := []types.TripRow{
		{Shares: 100, PnL: 500, DaysOpen: 3, ExitReason: types.SlotProfitTarget.Label()},
		{Shares: -50, PnL: -150, DaysOpen: 1, ExitReason: types.SlotStopLoss.Label()},
		{Shares: 10, PnL: 0, DaysOpen: 5, ExitReason: types.SlotTimeExit.Label()},
		{Shares: 20, PnL: 20.5, DaysOpen: 5, ExitReason: types.SlotTimeExit.Label()},
	}

	summary := Summarize(rows)

	assert.Equal(t, 4, summary.NumberOfTrips)
	assert.Equal(t, 2, summary.NumberOfWinningTrips)
	assert.Equal(t, 1, summary.NumberOfLosingTrips)
	assert.Equal(t, 0.5, summary.WinRate)
	assert.InDelta(t, 370.5, summary.TotalPnL, 1e-9)
	assert.Equal(t, -150.0, summary.MaximumLoss)
	assert.Equal(t, 500.0, summary.MaximumProfit)
	assert.Equal(t, 360.0, summary.TotalShares)
	assert.Equal(t, 3.5, summary.AverageDaysOpen)
	assert.Equal(t, map[string]int{
		"Profit target filled": 1,
		"Stop loss filled":     1,
		"Open day count":       2,
	}, summary.ExitReasons)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)

	assert.Equal(t, 0, summary.NumberOfTrips)
	assert.Equal(t, 0.0, summary.WinRate)
	assert.NotNil(t, summary.ExitReasons)
}

func TestSummarizeTransactions(t *testing.T) {
	summary := SummarizeTransactions([]types.Transaction{
		{Quantity: 100, Price: 50, Commission: 1},
		{Quantity: -100, Price: 55, Commission: 1},
		{Quantity: -10, Price: 20, Commission: 0.5},
	})

	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 210.0, summary.TotalShares)
	assert.Equal(t, 2.5, summary.TotalCommission)
	assert.Equal(t, 5000.0, summary.Bought)
	assert.Equal(t, -5700.0, summary.Sold)
}
