package bracket

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/types"
)

type SideEffectKind string

const (
	SideEffectSubmit  SideEffectKind = "SUBMIT"
	SideEffectCancel  SideEffectKind = "CANCEL"
	SideEffectArchive SideEffectKind = "ARCHIVE"
	SideEffectSkip    SideEffectKind = "SKIP"
)

// SideEffect records one externally visible action taken during a tick.
type SideEffect struct {
	Kind  SideEffectKind
	Event types.EventID
	// Slot is empty for ARCHIVE and SKIP.
	Slot    types.SlotKind
	OrderID string
	// Request is set for SUBMIT.
	Request optional.Option[types.OrderRequest]
	// Reason is set for SKIP.
	Reason string
}

// TickHandler is driven once per scheduling tick by the host.
type TickHandler interface {
	OnTick(ctx context.Context, snapshot types.Snapshot) ([]SideEffect, error)
}
