package bracket

import (
	"context"
	"math"
	"slices"

	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Skip reasons reported on SKIP side effects.
const (
	SkipReasonPositionOpen     = "position_open"
	SkipReasonPriceUnavailable = "price_unavailable"
)

// admit opens an entry for every new signal in the snapshot while capital allows.
// Symbols are visited in sorted order so the capital cutoff is deterministic.
func (m *Manager) admit(ctx context.Context, snapshot types.Snapshot) ([]SideEffect, error) {
	effects := []SideEffect{}
	startingCash := decimal.NewFromFloat(m.portfolio.StartingCash())
	committed := decimal.NewFromFloat(m.portfolio.PositionsValue()).Abs()

	for _, symbol := range snapshot.Symbols() {
		quote := snapshot.Quotes[symbol]
		if !quote.HasSignal() {
			continue
		}

		id := types.NewEventID(symbol, quote.SignalTime.Unwrap())
		if m.tracked(id) {
			continue
		}

		if !m.portfolio.Position(symbol).IsFlat() {
			m.skipped[id] = struct{}{}
			m.metrics.admissions.WithLabelValues(admissionSkippedPosition).Inc()
			m.logger.Info("Signal skipped, position already open",
				zap.String("event", id.String()),
				zap.String("symbol", symbol),
			)

			effects = append(effects, SideEffect{Kind: SideEffectSkip, Event: id, Reason: SkipReasonPositionOpen})

			continue
		}

		price, ok := tradablePrice(quote)
		if !ok {
			m.missingPrice[id] = struct{}{}
			m.metrics.admissions.WithLabelValues(admissionMissingPrice).Inc()
			m.anomaly(errors.Newf(errors.ErrCodePriceUnavailable, "no tradable price for %s", symbol),
				zap.String("event", id.String()),
				zap.String("symbol", symbol),
			)

			effects = append(effects, SideEffect{Kind: SideEffectSkip, Event: id, Reason: SkipReasonPriceUnavailable})

			continue
		}

		quantity := m.entryQuantity(price)
		if quantity.IsZero() {
			m.metrics.admissions.WithLabelValues(admissionZeroQuantity).Inc()
			m.logger.Info("Signal ignored, allocation buys no shares",
				zap.String("event", id.String()),
				zap.Float64("price", price),
				zap.Float64("allocation", m.config.AllocationPerSignal),
			)

			continue
		}

		notional := quantity.Mul(decimal.NewFromFloat(price)).Abs()
		if committed.Add(notional).GreaterThanOrEqual(startingCash) {
			m.metrics.admissions.WithLabelValues(admissionCapitalExceeded).Inc()
			m.logger.Info("Capital limit reached, no more entries this tick",
				zap.String("event", id.String()),
				zap.String("committed", committed.String()),
				zap.String("notional", notional.String()),
				zap.String("starting_cash", startingCash.String()),
			)

			break
		}

		qty, _ := quantity.Float64()

		effect, err := m.submit(ctx, id, types.SlotEntry, types.OrderRequest{Symbol: symbol, Quantity: qty})
		if err != nil {
			return effects, err
		}

		committed = committed.Add(notional)
		m.metrics.admissions.WithLabelValues(admissionAdmitted).Inc()

		effects = append(effects, effect)
	}

	return effects, nil
}

// tracked reports whether the event has already been decided on.
func (m *Manager) tracked(id types.EventID) bool {
	if m.ledger.Contains(id) || m.archive.Contains(id) {
		return true
	}

	if _, ok := m.skipped[id]; ok {
		return true
	}

	_, ok := m.missingPrice[id]

	return ok
}

// entryQuantity is the signed whole share count the allocation buys at price.
func (m *Manager) entryQuantity(price float64) decimal.Decimal {
	allocation := decimal.NewFromFloat(m.config.AllocationPerSignal).Mul(decimal.NewFromFloat(m.config.Side.Float()))

	return allocation.Div(decimal.NewFromFloat(price)).Round(0)
}

func tradablePrice(quote types.Quote) (float64, bool) {
	if quote.Price.IsNone() {
		return 0, false
	}

	price := quote.Price.Unwrap()
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false
	}

	return price, true
}

func sortedIDs(set map[types.EventID]struct{}) []types.EventID {
	ids := make([]types.EventID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, types.EventID.Compare)

	return ids
}
