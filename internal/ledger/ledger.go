// Package ledger keeps the live order slots of every tracked event.
//
// The ledger enforces the structural invariants of a bracket:
//   - at most one ENTRY slot per event, ever
//   - no exit slot unless the ENTRY was last observed FILLED
//   - a recorded slot is never replaced by another order
//
// Breaking any of them is reported as a fatal ErrCodeInvariantViolation error.
// A Ledger is owned by a single writer and is not safe for concurrent use.
package ledger

import (
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
)

type Ledger struct {
	entries map[types.EventID]Entry
	// entered remembers every event that ever received an ENTRY, including removed ones.
	entered map[types.EventID]struct{}
}

func New() *Ledger {
	return &Ledger{
		entries: make(map[types.EventID]Entry),
		entered: make(map[types.EventID]struct{}),
	}
}

// Get returns a copy of the entry for id.
func (l *Ledger) Get(id types.EventID) optional.Option[Entry] {
	entry, ok := l.entries[id]
	if !ok {
		return optional.None[Entry]()
	}

	return optional.Some(entry.Clone())
}

// Contains reports whether id is live.
func (l *Ledger) Contains(id types.EventID) bool {
	_, ok := l.entries[id]

	return ok
}

// HasSlot reports whether id has an order recorded for kind.
func (l *Ledger) HasSlot(id types.EventID, kind types.SlotKind) bool {
	entry, ok := l.entries[id]

	return ok && entry.Has(kind)
}

// SetSlot records ref under kind for id.
func (l *Ledger) SetSlot(id types.EventID, kind types.SlotKind, ref types.OrderRef) error {
	if ref.ID == "" {
		return errors.Newf(errors.ErrCodeInvalidParameter, "empty order id for %s slot of event %s", kind, id)
	}

	entry, live := l.entries[id]

	if kind == types.SlotEntry {
		if _, seen := l.entered[id]; seen {
			return errors.Newf(errors.ErrCodeInvariantViolation, "duplicate ENTRY for event %s (order %s)", id, ref.ID)
		}

		entry = NewEntry()
		entry.slots[types.SlotEntry] = ref
		l.entries[id] = entry
		l.entered[id] = struct{}{}

		return nil
	}

	if !kind.IsExit() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown slot kind %q", kind)
	}

	if !live || !entry.Has(types.SlotEntry) {
		return errors.Newf(errors.ErrCodeInvariantViolation, "%s slot set for event %s without an ENTRY", kind, id)
	}

	if status := entry.slots[types.SlotEntry].Status; status != types.OrderStatusFilled {
		return errors.Newf(errors.ErrCodeInvariantViolation,
			"%s slot set for event %s while ENTRY %s is %s", kind, id, entry.slots[types.SlotEntry].ID, status)
	}

	if existing, ok := entry.slots[kind]; ok {
		return errors.Newf(errors.ErrCodeInvariantViolation,
			"%s slot of event %s already holds order %s", kind, id, existing.ID)
	}

	entry.slots[kind] = ref

	return nil
}

// UpdateStatus stores the last observed status of an existing slot.
func (l *Ledger) UpdateStatus(id types.EventID, kind types.SlotKind, status types.OrderStatus) error {
	entry, ok := l.entries[id]
	if !ok || !entry.Has(kind) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "no %s slot for event %s", kind, id)
	}

	ref := entry.slots[kind]
	ref.Status = status
	entry.slots[kind] = ref

	return nil
}

// Remove takes id out of the live ledger and returns its entry.
// The event keeps counting as entered, so it can never receive a new ENTRY.
func (l *Ledger) Remove(id types.EventID) (Entry, error) {
	entry, ok := l.entries[id]
	if !ok {
		return Entry{}, errors.Newf(errors.ErrCodeInvalidParameter, "event %s is not in the ledger", id)
	}

	delete(l.entries, id)

	return entry, nil
}

// Len returns the number of live events.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// IDs returns the live event ids in sorted order.
func (l *Ledger) IDs() []types.EventID {
	ids := make([]types.EventID, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, types.EventID.Compare)

	return ids
}

// Snapshot returns deep copies of every live entry.
func (l *Ledger) Snapshot() map[types.EventID]Entry {
	out := make(map[types.EventID]Entry, len(l.entries))
	for id, entry := range l.entries {
		out[id] = entry.Clone()
	}

	return out
}
