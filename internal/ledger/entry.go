package ledger

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/types"
)

// Entry holds the order slots of a single event. An absent slot means the order was never sent.
type Entry struct {
	slots map[types.SlotKind]types.OrderRef
}

// NewEntry returns an entry without any slot.
func NewEntry() Entry {
	return Entry{slots: make(map[types.SlotKind]types.OrderRef, len(types.AllSlotKinds))}
}

// EntryFromSlots builds an entry from already known slots, e.g. when restoring an archive.
func EntryFromSlots(slots map[types.SlotKind]types.OrderRef) Entry {
	entry := NewEntry()
	for kind, ref := range slots {
		entry.slots[kind] = ref
	}

	return entry
}

// Slot returns the order recorded for kind.
func (e Entry) Slot(kind types.SlotKind) optional.Option[types.OrderRef] {
	ref, ok := e.slots[kind]
	if !ok {
		return optional.None[types.OrderRef]()
	}

	return optional.Some(ref)
}

// Has reports whether kind was sent.
func (e Entry) Has(kind types.SlotKind) bool {
	_, ok := e.slots[kind]

	return ok
}

// HasExit reports whether any exit slot was sent.
func (e Entry) HasExit() bool {
	for _, kind := range types.ExitKinds {
		if e.Has(kind) {
			return true
		}
	}

	return false
}

// Kinds returns the recorded slots in canonical order.
func (e Entry) Kinds() []types.SlotKind {
	kinds := make([]types.SlotKind, 0, len(e.slots))
	for _, kind := range types.AllSlotKinds {
		if e.Has(kind) {
			kinds = append(kinds, kind)
		}
	}

	return kinds
}

// Slots returns a copy of the slot map.
func (e Entry) Slots() map[types.SlotKind]types.OrderRef {
	out := make(map[types.SlotKind]types.OrderRef, len(e.slots))
	for kind, ref := range e.slots {
		out[kind] = ref
	}

	return out
}

// Clone returns a deep copy.
func (e Entry) Clone() Entry {
	return EntryFromSlots(e.slots)
}
