// Package archive holds events whose bracket has fully resolved.
package archive

import (
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/ledger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
)

// EventRecord is an archived event together with its final slot map.
type EventRecord struct {
	ID         types.EventID
	Entry      ledger.Entry
	ArchivedAt time.Time
}

// Archive is an append-only store of terminal events.
// Archiving an id twice is a fatal ArchiveConflict; everything returned is a copy.
// A store that cannot be read back reports a fatal ArchiveStorageFailed error.
type Archive interface {
	Archive(id types.EventID, entry ledger.Entry) error
	Get(id types.EventID) (optional.Option[ledger.Entry], error)
	Contains(id types.EventID) bool
	// Entries returns the records in archive order.
	Entries() ([]EventRecord, error)
	Len() int
}

var _ Archive = (*MemoryArchive)(nil)

type MemoryArchive struct {
	mu      sync.RWMutex
	index   map[types.EventID]int
	records []EventRecord
	now     func() time.Time
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		index:   make(map[types.EventID]int),
		records: []EventRecord{},
		now:     time.Now,
	}
}

func (a *MemoryArchive) Archive(id types.EventID, entry ledger.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.index[id]; ok {
		return conflict(id)
	}

	if len(entry.Kinds()) == 0 {
		return emptyEntry(id)
	}

	a.index[id] = len(a.records)
	a.records = append(a.records, EventRecord{
		ID:         id,
		Entry:      entry.Clone(),
		ArchivedAt: a.now().UTC(),
	})

	return nil
}

func (a *MemoryArchive) Get(id types.EventID) (optional.Option[ledger.Entry], error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	i, ok := a.index[id]
	if !ok {
		return optional.None[ledger.Entry](), nil
	}

	return optional.Some(a.records[i].Entry.Clone()), nil
}

func (a *MemoryArchive) Contains(id types.EventID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.index[id]

	return ok
}

func (a *MemoryArchive) Entries() ([]EventRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := make([]EventRecord, len(a.records))
	for i, record := range a.records {
		records[i] = EventRecord{ID: record.ID, Entry: record.Entry.Clone(), ArchivedAt: record.ArchivedAt}
	}

	return records, nil
}

func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.records)
}

func conflict(id types.EventID) error {
	return errors.Newf(errors.ErrCodeArchiveConflict, "event %s is already archived", id)
}

func emptyEntry(id types.EventID) error {
	return errors.Newf(errors.ErrCodeInvalidParameter, "event %s has no order slot to archive", id)
}
