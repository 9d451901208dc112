package types

import (
	"time"
)

// Position represents current holdings of an asset.
type Position struct {
	Symbol string `csv:"symbol"`
	// Quantity is signed: positive for long holdings, negative for short.
	Quantity float64 `csv:"quantity"`
	// CostBasis is the average entry price of the open quantity.
	CostBasis float64 `csv:"cost_basis"`
}

// IsFlat reports whether there is no open quantity.
func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

// Transaction is a single fill reported by the broker.
type Transaction struct {
	OrderID    string    `csv:"order_id"`
	Symbol     string    `csv:"symbol"`
	Quantity   float64   `csv:"quantity"`
	Price      float64   `csv:"price"`
	Commission float64   `csv:"commission"`
	FillTime   time.Time `csv:"fill_time"`
}

// TripRow is one reconciled round trip: an entry fill paired with its exit fill.
type TripRow struct {
	Symbol     string    `csv:"symbol" json:"symbol"`
	EntryTime  time.Time `csv:"entry_ts" json:"entry_ts"`
	ExitTime   time.Time `csv:"exit_ts" json:"exit_ts"`
	DaysOpen   int       `csv:"days_open" json:"days_open"`
	Shares     float64   `csv:"shares" json:"shares"`
	EntryPrice float64   `csv:"entry_price" json:"entry_price"`
	ExitPrice  float64   `csv:"exit_price" json:"exit_price"`
	// PnL is Shares * (ExitPrice - EntryPrice), so it is positive for a winning short as well.
	PnL        float64  `csv:"pnl" json:"pnl"`
	ExitReason string   `csv:"exit_reason" json:"exit_reason"`
	ExitSlot   SlotKind `csv:"-" json:"exit_slot"`
	EventID    string   `csv:"event_id" json:"event_id"`
}
