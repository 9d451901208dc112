package trading

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/types"
)

// Broker is the order surface the bracket manager talks to.
// Calls return promptly: SubmitOrder and CancelOrder never wait for the order to fill or cancel.
type Broker interface {
	// SubmitOrder sends an order and returns its handle. The returned status is usually PENDING.
	SubmitOrder(ctx context.Context, request types.OrderRequest) (types.OrderRef, error)
	// CancelOrder requests cancellation. Cancelling a resolved order is a no-op.
	CancelOrder(ctx context.Context, ref types.OrderRef) error
	// GetOrder returns the current broker view of an order, None if the broker has no record of it.
	GetOrder(ctx context.Context, ref types.OrderRef) (optional.Option[types.OrderInfo], error)
}

// Portfolio exposes the holdings used for exit sizing and capital checks.
type Portfolio interface {
	// Position returns the current position for a symbol; a flat position has zero quantity.
	Position(symbol string) types.Position
	// PositionsValue returns the signed market value of every open position.
	PositionsValue() float64
	// StartingCash returns the capital base.
	StartingCash() float64
}

// TransactionFeed lists the fills an execution venue produced.
type TransactionFeed interface {
	Transactions() []types.Transaction
}
