package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
)

type SlotKind string

type OrderStatus string

type OrderType string

const (
	SlotEntry        SlotKind = "ENTRY"
	SlotProfitTarget SlotKind = "PROFIT_TARGET"
	SlotStopLoss     SlotKind = "STOP_LOSS"
	SlotTimeExit     SlotKind = "TIME_EXIT"
)

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// ExitKinds lists the exit slots in reporting priority order.
// When more than one exit shows a fill, the first one in this list wins.
var ExitKinds = []SlotKind{SlotStopLoss, SlotProfitTarget, SlotTimeExit}

// AllSlotKinds lists every slot an event can hold.
var AllSlotKinds = []SlotKind{SlotEntry, SlotProfitTarget, SlotStopLoss, SlotTimeExit}

// IsExit reports whether the slot closes a position.
func (k SlotKind) IsExit() bool {
	return k == SlotProfitTarget || k == SlotStopLoss || k == SlotTimeExit
}

// Label is the exit reason written to the trip table.
func (k SlotKind) Label() string {
	switch k {
	case SlotProfitTarget:
		return "Profit target filled"
	case SlotStopLoss:
		return "Stop loss filled"
	case SlotTimeExit:
		return "Open day count"
	case SlotEntry:
		return "Entry"
	default:
		return "unknown"
	}
}

// IsWorking is true while the broker may still fill the order.
func (s OrderStatus) IsWorking() bool {
	return s == OrderStatusPending || s == OrderStatusOpen
}

// IsResolved is true once the order can no longer fill.
func (s OrderStatus) IsResolved() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// OrderRef is the handle the ledger keeps for a submitted order.
// Status is only the last status observed by the manager; the broker is the source of truth.
type OrderRef struct {
	ID     string      `json:"id" yaml:"id" csv:"id"`
	Status OrderStatus `json:"status" yaml:"status" csv:"status"`
}

// OrderInfo is what the broker reports for an order id.
type OrderInfo struct {
	ID     string
	Symbol string
	Status OrderStatus
	// Quantity is the signed requested quantity (positive buys, negative sells).
	Quantity float64
	// FilledQuantity is the signed filled quantity.
	FilledQuantity   float64
	AverageFillPrice float64
	CreatedAt        time.Time
	// FilledAt is None until the order fills.
	FilledAt optional.Option[time.Time]
}

// FillTime returns the fill time, falling back to the creation time for brokers that do not report it.
func (o OrderInfo) FillTime() time.Time {
	return o.FilledAt.TakeOr(o.CreatedAt)
}

// OrderRequest is an order intent sent to the broker.
type OrderRequest struct {
	Symbol string `validate:"required"`
	// Quantity is signed: positive buys, negative sells.
	Quantity   float64 `validate:"ne=0"`
	LimitPrice optional.Option[float64]
	StopPrice  optional.Option[float64]
}

// OrderType derives the order type from the prices that are set.
func (r OrderRequest) OrderType() OrderType {
	switch {
	case r.LimitPrice.IsSome():
		return OrderTypeLimit
	case r.StopPrice.IsSome():
		return OrderTypeStop
	default:
		return OrderTypeMarket
	}
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid order request", err)
	}

	if r.LimitPrice.IsSome() && r.StopPrice.IsSome() {
		return errors.New(errors.ErrCodeInvalidOrderRequest, "order request cannot carry both limit and stop price")
	}

	if r.LimitPrice.IsSome() && r.LimitPrice.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrderRequest, "limit price must be greater than zero: %f", r.LimitPrice.Unwrap())
	}

	if r.StopPrice.IsSome() && r.StopPrice.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrderRequest, "stop price must be greater than zero: %f", r.StopPrice.Unwrap())
	}

	return nil
}
