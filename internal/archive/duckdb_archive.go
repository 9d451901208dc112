package archive

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/ledger"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/internal/version"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"go.uber.org/zap"
)

var _ Archive = (*DuckDBArchive)(nil)

const versionKey = "version"

// DuckDBArchive persists archived events with one row per slot.
// Contains and Len are served from an in-memory index that is loaded when the database is opened.
type DuckDBArchive struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	index  map[types.EventID]int64
	nextID int64
	now    func() time.Time
}

// NewDuckDBArchive opens the archive at path. An empty path keeps the archive in memory.
func NewDuckDBArchive(path string, log *logger.Logger) (*DuckDBArchive, error) {
	if log == nil {
		log = logger.Nop()
	}

	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to open archive database", err)
	}

	a := &DuckDBArchive{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		index:  make(map[types.EventID]int64),
		now:    time.Now,
	}

	if err := a.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	if err := a.loadIndex(); err != nil {
		db.Close()

		return nil, err
	}

	return a, nil
}

func (a *DuckDBArchive) initialize() error {
	// Use raw SQL for DDL - Squirrel doesn't have CREATE syntax
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS archived_events (
			seq BIGINT,
			event_symbol TEXT,
			signal_time TIMESTAMP,
			slot TEXT,
			order_id TEXT,
			status TEXT,
			archived_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to create archived_events table", err)
	}

	_, err = a.db.Exec(`CREATE TABLE IF NOT EXISTS archive_meta (key TEXT PRIMARY KEY, value TEXT)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to create archive_meta table", err)
	}

	return a.checkVersion()
}

// checkVersion stamps a new archive with the binary version and refuses archives written by an
// incompatible one.
func (a *DuckDBArchive) checkVersion() error {
	var stored string

	err := a.sq.Select("value").
		From("archive_meta").
		Where(squirrel.Eq{"key": versionKey}).
		RunWith(a.db).
		QueryRow().
		Scan(&stored)

	switch {
	case err == sql.ErrNoRows:
		_, err = a.sq.Insert("archive_meta").
			Columns("key", "value").
			Values(versionKey, version.GetVersion()).
			RunWith(a.db).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to write archive version", err)
		}

		return nil
	case err != nil:
		return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to read archive version", err)
	}

	if err := version.CheckArchiveCompatibility(version.GetVersion(), stored); err != nil {
		return err
	}

	a.logger.Debug("Opened archive", zap.String("archive_version", stored))

	return nil
}

func (a *DuckDBArchive) loadIndex() error {
	rows, err := a.sq.
		Select("seq", "event_symbol", "signal_time").
		Distinct().
		From("archived_events").
		RunWith(a.db).
		Query()
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to load archive index", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq        int64
			symbol     string
			signalTime time.Time
		)

		if err := rows.Scan(&seq, &symbol, &signalTime); err != nil {
			return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to scan archive index", err)
		}

		a.index[types.NewEventID(symbol, signalTime)] = seq
		if seq >= a.nextID {
			a.nextID = seq + 1
		}
	}

	return rows.Err()
}

func (a *DuckDBArchive) Archive(id types.EventID, entry ledger.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.index[id]; ok {
		return conflict(id)
	}

	if len(entry.Kinds()) == 0 {
		return emptyEntry(id)
	}

	tx, err := a.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to begin transaction", err)
	}

	seq := a.nextID
	archivedAt := a.now().UTC()

	insert := a.sq.
		Insert("archived_events").
		Columns("seq", "event_symbol", "signal_time", "slot", "order_id", "status", "archived_at")

	for _, kind := range entry.Kinds() {
		ref := entry.Slot(kind).Unwrap()
		insert = insert.Values(seq, id.Symbol, id.SignalTime, string(kind), ref.ID, string(ref.Status), archivedAt)
	}

	if _, err := insert.RunWith(tx).Exec(); err != nil {
		tx.Rollback()

		return errors.Wrapf(errors.ErrCodeArchiveStorageFailed, err, "failed to archive event %s", id)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to commit transaction", err)
	}

	a.index[id] = seq
	a.nextID++

	a.logger.Debug("Event archived",
		zap.String("event", id.String()),
		zap.Int("slots", len(entry.Kinds())),
	)

	return nil
}

func (a *DuckDBArchive) Get(id types.EventID) (optional.Option[ledger.Entry], error) {
	a.mu.RLock()
	seq, ok := a.index[id]
	a.mu.RUnlock()

	if !ok {
		return optional.None[ledger.Entry](), nil
	}

	records, err := a.query(squirrel.Eq{"seq": seq})
	if err != nil {
		return optional.None[ledger.Entry](), errors.Wrapf(errors.ErrCodeArchiveStorageFailed, err, "failed to read archived event %s", id)
	}

	if len(records) == 0 {
		// the index says the event is stored, so its rows are gone
		return optional.None[ledger.Entry](), errors.Newf(errors.ErrCodeArchiveStorageFailed, "archived event %s has no stored slots", id)
	}

	return optional.Some(records[0].Entry), nil
}

func (a *DuckDBArchive) Contains(id types.EventID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.index[id]

	return ok
}

// Entries reads every archived event back from the database.
func (a *DuckDBArchive) Entries() ([]EventRecord, error) {
	records, err := a.query(nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchiveStorageFailed, "failed to read archived events", err)
	}

	return records, nil
}

func (a *DuckDBArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.index)
}

// Close closes the underlying database.
func (a *DuckDBArchive) Close() error {
	return a.db.Close()
}

func (a *DuckDBArchive) query(where squirrel.Sqlizer) ([]EventRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	selectQuery := a.sq.
		Select("seq", "event_symbol", "signal_time", "slot", "order_id", "status", "archived_at").
		From("archived_events").
		OrderBy("seq", "slot")

	if where != nil {
		selectQuery = selectQuery.Where(where)
	}

	rows, err := selectQuery.RunWith(a.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query archived events: %w", err)
	}
	defer rows.Close()

	records := []EventRecord{}
	slots := map[types.SlotKind]types.OrderRef{}
	current := int64(-1)

	var last EventRecord

	flush := func() {
		if current >= 0 {
			last.Entry = ledger.EntryFromSlots(slots)
			records = append(records, last)
		}
	}

	for rows.Next() {
		var (
			seq        int64
			symbol     string
			signalTime time.Time
			slot       string
			orderID    string
			status     string
			archivedAt time.Time
		)

		if err := rows.Scan(&seq, &symbol, &signalTime, &slot, &orderID, &status, &archivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived event: %w", err)
		}

		if seq != current {
			flush()

			current = seq
			slots = map[types.SlotKind]types.OrderRef{}
			last = EventRecord{ID: types.NewEventID(symbol, signalTime), ArchivedAt: archivedAt.UTC()}
		}

		slots[types.SlotKind(slot)] = types.OrderRef{ID: orderID, Status: types.OrderStatus(status)}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archived events: %w", err)
	}

	flush()

	return records, nil
}
