// Package paper is an in-memory broker and portfolio that fills orders against market snapshots.
package paper

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/trading"
	"github.com/rxtech-lab/argo-bracket/internal/trading/commission_fee"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	_ trading.Broker          = (*Broker)(nil)
	_ trading.Portfolio       = (*Broker)(nil)
	_ trading.TransactionFeed = (*Broker)(nil)
)

type paperOrder struct {
	info    types.OrderInfo
	request types.OrderRequest
}

// Broker simulates execution. Orders submitted during a tick are only eligible to fill on the
// next call to ProcessTick, so a submission never shows up as FILLED within its own tick.
//
// Fill rules:
//   - Market orders fill at the tick price.
//   - Limit buys fill at the limit once the price is at or below it, limit sells once it is at or above.
//   - Stop sells trigger once the price is at or below the stop, stop buys once it is at or above,
//     and fill at the tick price.
type Broker struct {
	mu           sync.Mutex
	log          *logger.Logger
	commission   commission_fee.CommissionFee
	startingCash float64
	cash         float64
	now          time.Time
	orders       map[string]*paperOrder
	working      []string
	positions    map[string]types.Position
	lastPrices   map[string]float64
	transactions []types.Transaction
}

func NewBroker(startingCash float64, commission commission_fee.CommissionFee, log *logger.Logger) *Broker {
	if commission == nil {
		commission = commission_fee.NewZeroCommissionFee()
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Broker{
		log:          log,
		commission:   commission,
		startingCash: startingCash,
		cash:         startingCash,
		orders:       make(map[string]*paperOrder),
		working:      []string{},
		positions:    make(map[string]types.Position),
		lastPrices:   make(map[string]float64),
		transactions: []types.Transaction{},
	}
}

// SubmitOrder implements trading.Broker.
func (b *Broker) SubmitOrder(ctx context.Context, request types.OrderRequest) (types.OrderRef, error) {
	if err := ctx.Err(); err != nil {
		return types.OrderRef{}, err
	}

	if err := request.Validate(); err != nil {
		return types.OrderRef{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.orders[id] = &paperOrder{
		info: types.OrderInfo{
			ID:        id,
			Symbol:    request.Symbol,
			Status:    types.OrderStatusPending,
			Quantity:  request.Quantity,
			CreatedAt: b.now,
			FilledAt:  optional.None[time.Time](),
		},
		request: request,
	}
	b.working = append(b.working, id)

	b.log.Debug("Paper order accepted",
		zap.String("order_id", id),
		zap.String("symbol", request.Symbol),
		zap.String("order_type", string(request.OrderType())),
		zap.Float64("quantity", request.Quantity),
	)

	return types.OrderRef{ID: id, Status: types.OrderStatusPending}, nil
}

// CancelOrder implements trading.Broker.
func (b *Broker) CancelOrder(ctx context.Context, ref types.OrderRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[ref.ID]
	if !ok {
		return errors.Newf(errors.ErrCodeMissingOrder, "order %s not found", ref.ID)
	}

	if !order.info.Status.IsWorking() {
		return nil
	}

	order.info.Status = types.OrderStatusCancelled
	b.working = slices.DeleteFunc(b.working, func(id string) bool { return id == ref.ID })

	return nil
}

// GetOrder implements trading.Broker.
func (b *Broker) GetOrder(ctx context.Context, ref types.OrderRef) (optional.Option[types.OrderInfo], error) {
	if err := ctx.Err(); err != nil {
		return optional.None[types.OrderInfo](), err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[ref.ID]
	if !ok {
		return optional.None[types.OrderInfo](), nil
	}

	return optional.Some(order.info), nil
}

// ProcessTick advances the simulated clock, fills every working order the snapshot triggers and
// marks the rest OPEN.
func (b *Broker) ProcessTick(snapshot types.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.now = snapshot.Time

	for symbol, quote := range snapshot.Quotes {
		if quote.Price.IsSome() {
			b.lastPrices[symbol] = quote.Price.Unwrap()
		}
	}

	remaining := make([]string, 0, len(b.working))

	for _, id := range b.working {
		order := b.orders[id]

		price := snapshot.Price(order.request.Symbol)
		if price.IsNone() {
			order.info.Status = types.OrderStatusOpen
			remaining = append(remaining, id)

			continue
		}

		fillPrice, ok := triggerPrice(order.request, price.Unwrap())
		if !ok {
			order.info.Status = types.OrderStatusOpen
			remaining = append(remaining, id)

			continue
		}

		b.fill(order, fillPrice)
	}

	b.working = remaining
}

func triggerPrice(request types.OrderRequest, price float64) (float64, bool) {
	buy := request.Quantity > 0

	switch request.OrderType() {
	case types.OrderTypeLimit:
		limit := request.LimitPrice.Unwrap()
		if (buy && price <= limit) || (!buy && price >= limit) {
			return limit, true
		}

		return 0, false
	case types.OrderTypeStop:
		stop := request.StopPrice.Unwrap()
		if (buy && price >= stop) || (!buy && price <= stop) {
			return price, true
		}

		return 0, false
	default:
		return price, true
	}
}

func (b *Broker) fill(order *paperOrder, price float64) {
	quantity := order.request.Quantity
	fee := b.commission.Calculate(quantity)

	b.applyPosition(order.request.Symbol, quantity, price)

	cost := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price)).Add(decimal.NewFromFloat(fee))
	b.cash, _ = decimal.NewFromFloat(b.cash).Sub(cost).Float64()

	order.info.Status = types.OrderStatusFilled
	order.info.FilledQuantity = quantity
	order.info.AverageFillPrice = price
	order.info.FilledAt = optional.Some(b.now)

	b.transactions = append(b.transactions, types.Transaction{
		OrderID:    order.info.ID,
		Symbol:     order.request.Symbol,
		Quantity:   quantity,
		Price:      price,
		Commission: fee,
		FillTime:   b.now,
	})

	b.log.Debug("Paper order filled",
		zap.String("order_id", order.info.ID),
		zap.String("symbol", order.request.Symbol),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.Float64("fee", fee),
	)
}

// applyPosition updates the signed quantity and the average cost of the open quantity.
func (b *Broker) applyPosition(symbol string, quantity float64, price float64) {
	position := b.positions[symbol]
	position.Symbol = symbol

	current := decimal.NewFromFloat(position.Quantity)
	delta := decimal.NewFromFloat(quantity)
	next := current.Add(delta)

	switch {
	case next.IsZero():
		position.CostBasis = 0
	case current.IsZero() || current.Sign() == delta.Sign():
		// adding to the position
		value := current.Mul(decimal.NewFromFloat(position.CostBasis)).Add(delta.Mul(decimal.NewFromFloat(price)))
		position.CostBasis, _ = value.Div(next).Float64()
	case current.Sign() != next.Sign():
		// flipped through zero, the remainder was opened at this price
		position.CostBasis = price
	}

	position.Quantity, _ = next.Float64()

	if position.Quantity == 0 {
		delete(b.positions, symbol)

		return
	}

	b.positions[symbol] = position
}

// Position implements trading.Portfolio.
func (b *Broker) Position(symbol string) types.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	position, ok := b.positions[symbol]
	if !ok {
		return types.Position{Symbol: symbol}
	}

	return position
}

// Positions returns every open position sorted by symbol.
func (b *Broker) Positions() []types.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := make([]types.Position, 0, len(b.positions))
	for _, position := range b.positions {
		positions = append(positions, position)
	}

	slices.SortFunc(positions, func(a, c types.Position) int {
		return cmp.Compare(a.Symbol, c.Symbol)
	})

	return positions
}

// PositionsValue implements trading.Portfolio. Positions are marked at the last seen price,
// or at cost when the symbol has not traded yet.
func (b *Broker) PositionsValue() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := decimal.Zero

	for symbol, position := range b.positions {
		price, ok := b.lastPrices[symbol]
		if !ok {
			price = position.CostBasis
		}

		total = total.Add(decimal.NewFromFloat(position.Quantity).Mul(decimal.NewFromFloat(price)))
	}

	value, _ := total.Float64()

	return value
}

// StartingCash implements trading.Portfolio.
func (b *Broker) StartingCash() float64 {
	return b.startingCash
}

// Cash returns the current cash balance after fills and fees.
func (b *Broker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cash
}

// Equity returns cash plus the marked value of open positions.
func (b *Broker) Equity() float64 {
	return b.Cash() + b.PositionsValue()
}

// OpenOrderCount returns the number of working orders.
func (b *Broker) OpenOrderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.working)
}

// Transactions implements trading.TransactionFeed.
func (b *Broker) Transactions() []types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.transactions)
}

