// Package report reconciles archived events with broker fills into round trips.
package report

import (
	"slices"

	"github.com/rxtech-lab/argo-bracket/internal/archive"
	"github.com/rxtech-lab/argo-bracket/internal/calendar"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Diagnostic explains why an event produced no row, or how an ambiguous one was resolved.
type Diagnostic struct {
	Code     errors.ErrorCode
	Event    types.EventID
	OrderIDs []string
	Message  string
}

type TripTable struct {
	Rows        []types.TripRow
	Diagnostics []Diagnostic
}

type TripTableBuilder struct {
	calendar calendar.Calendar
	logger   *logger.Logger
}

func NewTripTableBuilder(cal calendar.Calendar, log *logger.Logger) *TripTableBuilder {
	if log == nil {
		log = logger.Nop()
	}

	return &TripTableBuilder{calendar: cal, logger: log}
}

// Build pairs every event's entry fill with its exit fill. Rows follow event order.
// A transaction feed that reports the same order twice cannot be reconciled and fails the whole build.
func (b *TripTableBuilder) Build(events []archive.EventRecord, txs []types.Transaction) (TripTable, error) {
	fills := make(map[string]types.Transaction, len(txs))

	for _, tx := range txs {
		if _, ok := fills[tx.OrderID]; ok {
			return TripTable{}, errors.Newf(errors.ErrCodeDuplicateOrderID, "order %s appears more than once in the transaction feed", tx.OrderID)
		}

		fills[tx.OrderID] = tx
	}

	sorted := slices.Clone(events)
	slices.SortFunc(sorted, func(a, c archive.EventRecord) int {
		return a.ID.Compare(c.ID)
	})

	table := TripTable{Rows: []types.TripRow{}, Diagnostics: []Diagnostic{}}

	for _, event := range sorted {
		row, ok := b.buildRow(event, fills, &table)
		if ok {
			table.Rows = append(table.Rows, row)
		}
	}

	return table, nil
}

func (b *TripTableBuilder) buildRow(event archive.EventRecord, fills map[string]types.Transaction, table *TripTable) (types.TripRow, bool) {
	entryRef := event.Entry.Slot(types.SlotEntry)
	if entryRef.IsNone() {
		b.diagnose(table, errors.ErrCodeUnreconciledEntry, event.ID, nil, "event has no entry order")

		return types.TripRow{}, false
	}

	entryID := entryRef.Unwrap().ID

	entry, ok := fills[entryID]
	if !ok {
		b.diagnose(table, errors.ErrCodeUnreconciledEntry, event.ID, []string{entryID}, "entry order has no fill")

		return types.TripRow{}, false
	}

	var (
		exitKinds []types.SlotKind
		exitIDs   []string
	)

	for _, kind := range types.ExitKinds {
		ref := event.Entry.Slot(kind)
		if ref.IsNone() {
			continue
		}

		if _, ok := fills[ref.Unwrap().ID]; ok {
			exitKinds = append(exitKinds, kind)
			exitIDs = append(exitIDs, ref.Unwrap().ID)
		}
	}

	if len(exitKinds) == 0 {
		b.diagnose(table, errors.ErrCodeUnreconciledExit, event.ID, []string{entryID}, "no exit order has a fill")

		return types.TripRow{}, false
	}

	if len(exitKinds) > 1 {
		// ExitKinds is in priority order, so the first filled exit wins
		b.diagnose(table, errors.ErrCodeAmbiguousExit, event.ID, exitIDs, "more than one exit filled, using "+string(exitKinds[0]))
	}

	exitKind := exitKinds[0]
	exit := fills[exitIDs[0]]

	entryQty := decimal.NewFromFloat(entry.Quantity)
	if !decimal.NewFromFloat(exit.Quantity).Equal(entryQty.Neg()) {
		b.diagnose(table, errors.ErrCodeQuantityMismatch, event.ID, []string{entryID, exit.OrderID}, "exit quantity does not close the entry quantity")

		return types.TripRow{}, false
	}

	pnl, _ := entryQty.Mul(decimal.NewFromFloat(exit.Price).Sub(decimal.NewFromFloat(entry.Price))).Float64()

	return types.TripRow{
		Symbol:     event.ID.Symbol,
		EntryTime:  entry.FillTime,
		ExitTime:   exit.FillTime,
		DaysOpen:   b.calendar.TradingDaysBetween(entry.FillTime, exit.FillTime),
		Shares:     entry.Quantity,
		EntryPrice: entry.Price,
		ExitPrice:  exit.Price,
		PnL:        pnl,
		ExitReason: exitKind.Label(),
		ExitSlot:   exitKind,
		EventID:    event.ID.String(),
	}, true
}

func (b *TripTableBuilder) diagnose(table *TripTable, code errors.ErrorCode, id types.EventID, orderIDs []string, message string) {
	table.Diagnostics = append(table.Diagnostics, Diagnostic{
		Code:     code,
		Event:    id,
		OrderIDs: orderIDs,
		Message:  message,
	})

	b.logger.Warn("Trip not reconciled cleanly",
		zap.String("event", id.String()),
		zap.String("kind", code.Name()),
		zap.Strings("order_ids", orderIDs),
		zap.String("message", message),
	)
}
