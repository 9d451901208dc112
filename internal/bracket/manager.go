// Package bracket manages the order lifecycle of every trading signal: an entry order, a profit target
// and a stop loss that cancel each other, and a time based exit.
package bracket

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/archive"
	"github.com/rxtech-lab/argo-bracket/internal/calendar"
	"github.com/rxtech-lab/argo-bracket/internal/ledger"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/trading"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ TickHandler = (*Manager)(nil)

// Manager owns the live ledger, the archive and the admission state. OnTick is the only mutating
// entry point and calls are serialized.
type Manager struct {
	mu           sync.Mutex
	config       Config
	broker       trading.Broker
	portfolio    trading.Portfolio
	calendar     calendar.Calendar
	ledger       *ledger.Ledger
	archive      archive.Archive
	skipped      map[types.EventID]struct{}
	missingPrice map[types.EventID]struct{}
	metrics      *Metrics
	logger       *logger.Logger
}

type Option func(*Manager)

// WithArchive replaces the default in-memory archive.
func WithArchive(a archive.Archive) Option {
	return func(m *Manager) {
		m.archive = a
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics replaces the default unregistered metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func NewManager(
	config Config,
	broker trading.Broker,
	portfolio trading.Portfolio,
	cal calendar.Calendar,
	opts ...Option,
) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if broker == nil || portfolio == nil || cal == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "broker, portfolio and calendar are required")
	}

	m := &Manager{
		config:       config,
		broker:       broker,
		portfolio:    portfolio,
		calendar:     cal,
		ledger:       ledger.New(),
		skipped:      make(map[types.EventID]struct{}),
		missingPrice: make(map[types.EventID]struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.archive == nil {
		m.archive = archive.NewMemoryArchive()
	}

	if m.logger == nil {
		m.logger = logger.Nop()
	}

	if m.metrics == nil {
		// unregistered metrics cannot fail
		m.metrics, _ = NewMetrics(nil)
	}

	return m, nil
}

// OnTick reconciles every live event with the broker, archives the resolved ones and admits new signals.
// A returned error is fatal for the run; recoverable anomalies are only logged.
func (m *Manager) OnTick(ctx context.Context, snapshot types.Snapshot) ([]SideEffect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	effects := []SideEffect{}
	terminal := []types.EventID{}

	for _, id := range m.ledger.IDs() {
		done, eventEffects, err := m.processEvent(ctx, id, snapshot.Time)
		effects = append(effects, eventEffects...)

		if err != nil {
			return effects, err
		}

		if done {
			terminal = append(terminal, id)
		}
	}

	for _, id := range terminal {
		entry, err := m.ledger.Remove(id)
		if err != nil {
			return effects, err
		}

		if err := m.archive.Archive(id, entry); err != nil {
			return effects, err
		}

		m.metrics.eventsArchived.Inc()
		m.logger.Info("Event archived", zap.String("event", id.String()))

		effects = append(effects, SideEffect{Kind: SideEffectArchive, Event: id})
	}

	admitted, err := m.admit(ctx, snapshot)
	effects = append(effects, admitted...)

	return effects, err
}

// processEvent advances a single live event and reports whether its bracket is resolved.
func (m *Manager) processEvent(ctx context.Context, id types.EventID, now time.Time) (bool, []SideEffect, error) {
	entry := m.ledger.Get(id).Unwrap()
	entryRef := entry.Slot(types.SlotEntry).Unwrap()

	entryInfo, ok, err := m.refresh(ctx, id, types.SlotEntry, entryRef)
	if err != nil || !ok {
		return false, nil, err
	}

	if entryInfo.Status != types.OrderStatusFilled {
		if entry.HasExit() {
			return false, nil, errors.Newf(errors.ErrCodeInvariantViolation,
				"event %s has exit orders while its entry %s is %s", id, entryRef.ID, entryInfo.Status)
		}

		return false, nil, nil
	}

	exits := make(map[types.SlotKind]types.OrderStatus, len(types.ExitKinds))

	for _, kind := range types.ExitKinds {
		ref := entry.Slot(kind)
		if ref.IsNone() {
			continue
		}

		info, ok, err := m.refresh(ctx, id, kind, ref.Unwrap())
		if err != nil || !ok {
			return false, nil, err
		}

		exits[kind] = info.Status
	}

	if done, effects, handled, err := m.resolveExits(ctx, id, entry, exits); handled || err != nil {
		return done, effects, err
	}

	return m.placeExits(ctx, id, entry, entryInfo, exits, now)
}

// refresh reads ref from the broker and records its status in the ledger.
// ok is false when the broker has no record of the order.
func (m *Manager) refresh(
	ctx context.Context,
	id types.EventID,
	kind types.SlotKind,
	ref types.OrderRef,
) (types.OrderInfo, bool, error) {
	info, err := m.broker.GetOrder(ctx, ref)
	if err != nil {
		return types.OrderInfo{}, false, errors.Wrapf(errors.ErrCodeOrderFailed, err,
			"failed to query %s order %s of event %s", kind, ref.ID, id)
	}

	if info.IsNone() {
		m.anomaly(errors.Newf(errors.ErrCodeMissingOrder, "broker has no record of order %s", ref.ID),
			zap.String("event", id.String()),
			zap.String("slot", string(kind)),
			zap.String("order_id", ref.ID),
		)

		return types.OrderInfo{}, false, nil
	}

	order := info.Unwrap()
	if order.Status != ref.Status {
		if err := m.ledger.UpdateStatus(id, kind, order.Status); err != nil {
			return types.OrderInfo{}, false, err
		}
	}

	return order, true, nil
}

// resolveExits applies the one-cancels-other rule. handled is true when nothing else should happen to the
// event during this tick.
func (m *Manager) resolveExits(
	ctx context.Context,
	id types.EventID,
	entry ledger.Entry,
	exits map[types.SlotKind]types.OrderStatus,
) (done bool, effects []SideEffect, handled bool, err error) {
	pt, hasPT := exits[types.SlotProfitTarget]
	sl, hasSL := exits[types.SlotStopLoss]
	te, hasTE := exits[types.SlotTimeExit]

	var toCancel []types.SlotKind

	switch {
	case hasPT && hasSL && sl == types.OrderStatusFilled && pt.IsWorking():
		toCancel = []types.SlotKind{types.SlotProfitTarget}
	case hasPT && hasSL && pt == types.OrderStatusFilled && sl.IsWorking():
		toCancel = []types.SlotKind{types.SlotStopLoss}
	case hasTE && te == types.OrderStatusFilled && (pt.IsWorking() || sl.IsWorking()):
		// a time exit closed the position but a cancel did not go through
		for _, kind := range []types.SlotKind{types.SlotProfitTarget, types.SlotStopLoss} {
			if exits[kind].IsWorking() {
				toCancel = append(toCancel, kind)
			}
		}
	}

	if len(toCancel) > 0 {
		for _, kind := range toCancel {
			effect, err := m.cancel(ctx, id, kind, entry.Slot(kind).Unwrap())
			if err != nil {
				return false, effects, true, err
			}

			effects = append(effects, effect)
		}

		return false, effects, true, nil
	}

	if hasPT && hasSL && !pt.IsWorking() && !sl.IsWorking() && (!hasTE || !te.IsWorking()) {
		return true, nil, true, nil
	}

	// only one of profit target and stop loss exists and an exit already filled; nothing left to place
	if (!hasPT || !hasSL) && anyFilled(exits) {
		for _, status := range exits {
			if status.IsWorking() {
				return false, nil, true, nil
			}
		}

		return true, nil, true, nil
	}

	return false, nil, false, nil
}

func anyFilled(exits map[types.SlotKind]types.OrderStatus) bool {
	for _, status := range exits {
		if status == types.OrderStatusFilled {
			return true
		}
	}

	return false
}

// placeExits submits the missing profit target and stop loss, and the time exit once the holding period is over.
func (m *Manager) placeExits(
	ctx context.Context,
	id types.EventID,
	entry ledger.Entry,
	entryInfo types.OrderInfo,
	exits map[types.SlotKind]types.OrderStatus,
	now time.Time,
) (bool, []SideEffect, error) {
	effects := []SideEffect{}
	side := decimal.NewFromFloat(m.config.Side.Float())
	one := decimal.NewFromInt(1)
	fill := decimal.NewFromFloat(entryInfo.AverageFillPrice)

	if !entry.Has(types.SlotProfitTarget) {
		limit := fill.Mul(one.Add(decimal.NewFromFloat(m.config.ProfitTargetFraction).Mul(side)))

		effect, ok, err := m.submitExit(ctx, id, types.SlotProfitTarget, func(quantity float64) types.OrderRequest {
			return types.OrderRequest{Symbol: id.Symbol, Quantity: quantity, LimitPrice: optional.Some(m.roundPrice(limit))}
		})
		if err != nil || !ok {
			return false, effects, err
		}

		effects = append(effects, effect)
		exits[types.SlotProfitTarget] = types.OrderStatusPending
	}

	if !entry.Has(types.SlotStopLoss) {
		stop := fill.Mul(one.Sub(decimal.NewFromFloat(m.config.StopLossFraction).Mul(side)))

		effect, ok, err := m.submitExit(ctx, id, types.SlotStopLoss, func(quantity float64) types.OrderRequest {
			return types.OrderRequest{Symbol: id.Symbol, Quantity: quantity, StopPrice: optional.Some(m.roundPrice(stop))}
		})
		if err != nil || !ok {
			return false, effects, err
		}

		effects = append(effects, effect)
		exits[types.SlotStopLoss] = types.OrderStatusPending
	}

	if entry.Has(types.SlotTimeExit) ||
		exits[types.SlotProfitTarget] == types.OrderStatusFilled ||
		exits[types.SlotStopLoss] == types.OrderStatusFilled {
		return false, effects, nil
	}

	days := m.calendar.TradingDaysBetween(entryInfo.FillTime(), now)
	if days < m.config.MaxHoldingDays {
		return false, effects, nil
	}

	if m.portfolio.Position(id.Symbol).IsFlat() {
		m.positionUnavailable(id, types.SlotTimeExit)

		return false, effects, nil
	}

	m.logger.Info("Holding period reached",
		zap.String("event", id.String()),
		zap.Int("trading_days", days),
		zap.Int("max_holding_days", m.config.MaxHoldingDays),
	)

	current := m.ledger.Get(id).Unwrap()

	for _, kind := range []types.SlotKind{types.SlotProfitTarget, types.SlotStopLoss} {
		ref := current.Slot(kind)
		if ref.IsNone() || !exits[kind].IsWorking() {
			continue
		}

		effect, err := m.cancel(ctx, id, kind, ref.Unwrap())
		if err != nil {
			return false, effects, err
		}

		effects = append(effects, effect)
	}

	effect, ok, err := m.submitExit(ctx, id, types.SlotTimeExit, func(quantity float64) types.OrderRequest {
		return types.OrderRequest{Symbol: id.Symbol, Quantity: quantity}
	})
	if err != nil || !ok {
		return false, effects, err
	}

	return false, append(effects, effect), nil
}

// submitExit sizes an exit against the current position and records it in the ledger.
// ok is false when there is no position to close.
func (m *Manager) submitExit(
	ctx context.Context,
	id types.EventID,
	kind types.SlotKind,
	build func(quantity float64) types.OrderRequest,
) (SideEffect, bool, error) {
	position := m.portfolio.Position(id.Symbol)
	if position.IsFlat() {
		m.positionUnavailable(id, kind)

		return SideEffect{}, false, nil
	}

	request := build(-position.Quantity)

	effect, err := m.submit(ctx, id, kind, request)
	if err != nil {
		return SideEffect{}, false, err
	}

	return effect, true, nil
}

func (m *Manager) submit(ctx context.Context, id types.EventID, kind types.SlotKind, request types.OrderRequest) (SideEffect, error) {
	ref, err := m.broker.SubmitOrder(ctx, request)
	if err != nil {
		return SideEffect{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to submit %s order for event %s", kind, id)
	}

	if err := m.ledger.SetSlot(id, kind, ref); err != nil {
		return SideEffect{}, err
	}

	m.metrics.ordersSubmitted.WithLabelValues(string(kind)).Inc()
	m.logger.Info("Order submitted",
		zap.String("event", id.String()),
		zap.String("symbol", id.Symbol),
		zap.String("slot", string(kind)),
		zap.String("order_id", ref.ID),
		zap.String("order_type", string(request.OrderType())),
		zap.Float64("quantity", request.Quantity),
	)

	return SideEffect{
		Kind:    SideEffectSubmit,
		Event:   id,
		Slot:    kind,
		OrderID: ref.ID,
		Request: optional.Some(request),
	}, nil
}

// cancel requests a cancel without waiting for it; the outcome is read back on a later tick.
func (m *Manager) cancel(ctx context.Context, id types.EventID, kind types.SlotKind, ref types.OrderRef) (SideEffect, error) {
	if err := m.broker.CancelOrder(ctx, ref); err != nil {
		return SideEffect{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to cancel %s order %s of event %s", kind, ref.ID, id)
	}

	m.metrics.ordersCancelled.WithLabelValues(string(kind)).Inc()
	m.logger.Info("Cancel requested",
		zap.String("event", id.String()),
		zap.String("slot", string(kind)),
		zap.String("order_id", ref.ID),
	)

	return SideEffect{Kind: SideEffectCancel, Event: id, Slot: kind, OrderID: ref.ID}, nil
}

func (m *Manager) positionUnavailable(id types.EventID, kind types.SlotKind) {
	m.anomaly(errors.Newf(errors.ErrCodePositionUnavailable, "no open position in %s to size the %s order", id.Symbol, kind),
		zap.String("event", id.String()),
		zap.String("slot", string(kind)),
	)
}

// anomaly logs a recoverable condition and counts it.
func (m *Manager) anomaly(err *errors.Error, fields ...zap.Field) {
	m.metrics.anomalies.WithLabelValues(err.Code.Name()).Inc()
	m.logger.Warn("Recoverable anomaly", append(fields, zap.String("kind", err.Code.Name()), zap.Error(err))...)
}

func (m *Manager) roundPrice(price decimal.Decimal) float64 {
	rounded, _ := price.Round(int32(m.config.PricePrecision)).Float64()

	return rounded
}

// Ledger returns a copy of the live events.
func (m *Manager) Ledger() map[types.EventID]ledger.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ledger.Snapshot()
}

func (m *Manager) Archive() archive.Archive {
	return m.archive
}

// Skipped returns the events that were refused because a position was already open.
func (m *Manager) Skipped() []types.EventID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return sortedIDs(m.skipped)
}

// MissingPrice returns the events that arrived without a tradable price.
func (m *Manager) MissingPrice() []types.EventID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return sortedIDs(m.missingPrice)
}
