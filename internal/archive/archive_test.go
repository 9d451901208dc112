package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/ledger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/internal/version"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ArchiveTestSuite struct {
	suite.Suite
	newArchive func() Archive
	archive    Archive
}

func TestMemoryArchiveSuite(t *testing.T) {
	suite.Run(t, &ArchiveTestSuite{newArchive: func() Archive { return NewMemoryArchive() }})
}

func TestDuckDBArchiveSuite(t *testing.T) {
	suite.Run(t, &ArchiveTestSuite{newArchive: func() Archive {
		a, err := NewDuckDBArchive("", nil)
		if err != nil {
			t.Fatalf("failed to open archive: %v", err)
		}

		t.Cleanup(func() { a.Close() })

		return a
	}})
}

func (suite *ArchiveTestSuite) SetupTest() {
	suite.archive = suite.newArchive()
}

func eventID(symbol string, day int) types.EventID {
	return types.NewEventID(symbol, time.Date(2024, 1, day, 15, 30, 0, 0, time.UTC))
}

func resolvedEntry(prefix string) ledger.Entry {
	return ledger.EntryFromSlots(map[types.SlotKind]types.OrderRef{
		types.SlotEntry:        {ID: prefix + "-entry", Status: types.OrderStatusFilled},
		types.SlotProfitTarget: {ID: prefix + "-pt", Status: types.OrderStatusFilled},
		types.SlotStopLoss:     {ID: prefix + "-sl", Status: types.OrderStatusCancelled},
	})
}

func (suite *ArchiveTestSuite) get(id types.EventID) optional.Option[ledger.Entry] {
	entry, err := suite.get(id)
	suite.Require().NoError(err)

	return entry
}

func (suite *ArchiveTestSuite) TestArchiveAndGet() {
	id := eventID("AAPL", 2)

	suite.False(suite.archive.Contains(id))
	suite.True(suite.get(id).IsNone())

	suite.Require().NoError(suite.archive.Archive(id, resolvedEntry("a")))

	suite.True(suite.archive.Contains(id))
	suite.Equal(1, suite.archive.Len())

	entry := suite.get(id)
	suite.Require().True(entry.IsSome())
	suite.Equal(resolvedEntry("a").Slots(), entry.Unwrap().Slots())
}

func (suite *ArchiveTestSuite) TestArchiveTwiceIsConflict() {
	id := eventID("AAPL", 2)
	suite.Require().NoError(suite.archive.Archive(id, resolvedEntry("a")))

	err := suite.archive.Archive(id, resolvedEntry("b"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeArchiveConflict))
	suite.True(errors.IsFatal(err))

	// the first record is kept
	suite.Equal("a-entry", suite.get(id).Unwrap().Slot(types.SlotEntry).Unwrap().ID)
	suite.Equal(1, suite.archive.Len())
}

func (suite *ArchiveTestSuite) TestRejectsEmptyEntry() {
	err := suite.archive.Archive(eventID("AAPL", 2), ledger.NewEntry())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.Equal(0, suite.archive.Len())
}

func (suite *ArchiveTestSuite) TestEntriesInArchiveOrder() {
	ids := []types.EventID{eventID("MSFT", 3), eventID("AAPL", 2), eventID("AAPL", 4)}
	for i, id := range ids {
		suite.Require().NoError(suite.archive.Archive(id, resolvedEntry(string(rune('a'+i)))))
	}

	records, err := suite.archive.Entries()
	suite.Require().NoError(err)
	suite.Require().Len(records, 3)

	for i, record := range records {
		suite.Equal(ids[i], record.ID)
		suite.False(record.ArchivedAt.IsZero())
		suite.Len(record.Entry.Kinds(), 3)
	}
}

func (suite *ArchiveTestSuite) TestReturnedEntriesAreCopies() {
	id := eventID("AAPL", 2)
	original := resolvedEntry("a")
	suite.Require().NoError(suite.archive.Archive(id, original))

	got := suite.get(id).Unwrap()
	slots := got.Slots()
	slots[types.SlotTimeExit] = types.OrderRef{ID: "x"}

	suite.False(suite.get(id).Unwrap().Has(types.SlotTimeExit))
}

func TestDuckDBArchiveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.duckdb")
	id := eventID("AAPL", 2)

	a, err := NewDuckDBArchive(path, nil)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}

	if err := a.Archive(id, resolvedEntry("a")); err != nil {
		t.Fatalf("failed to archive: %v", err)
	}

	a.Close()

	reopened, err := NewDuckDBArchive(path, nil)
	if err != nil {
		t.Fatalf("failed to reopen archive: %v", err)
	}
	defer reopened.Close()

	if !reopened.Contains(id) {
		t.Fatalf("expected %s to survive reopening", id)
	}

	if err := reopened.Archive(id, resolvedEntry("b")); !errors.HasCode(err, errors.ErrCodeArchiveConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	next := eventID("MSFT", 3)
	if err := reopened.Archive(next, resolvedEntry("c")); err != nil {
		t.Fatalf("failed to archive: %v", err)
	}

	records, err := reopened.Entries()
	if err != nil {
		t.Fatalf("failed to read entries: %v", err)
	}

	if got := len(records); got != 2 {
		t.Fatalf("expected 2 records, got %d", got)
	}
}

func TestDuckDBArchiveReadFailureIsReported(t *testing.T) {
	a, err := NewDuckDBArchive("", nil)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}

	id := eventID("AAPL", 2)
	if err := a.Archive(id, resolvedEntry("a")); err != nil {
		t.Fatalf("failed to archive: %v", err)
	}

	a.Close()

	records, err := a.Entries()
	if !errors.HasCode(err, errors.ErrCodeArchiveStorageFailed) || !errors.IsFatal(err) {
		t.Fatalf("expected fatal storage failure from Entries, got %v", err)
	}

	if records != nil {
		t.Fatalf("expected no records on failure, got %d", len(records))
	}

	entry, err := a.Get(id)
	if !errors.HasCode(err, errors.ErrCodeArchiveStorageFailed) {
		t.Fatalf("expected storage failure from Get, got %v", err)
	}

	if entry.IsSome() {
		t.Fatal("expected no entry on failure")
	}

	// unknown ids are answered from the index and stay a plain miss
	missing, err := a.Get(eventID("MSFT", 3))
	if err != nil || missing.IsSome() {
		t.Fatalf("expected a miss for an unknown id, got %v, %v", missing, err)
	}
}

func TestDuckDBArchiveVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.duckdb")

	original := version.Version
	t.Cleanup(func() { version.Version = original })

	version.Version = "v1.2.0"

	a, err := NewDuckDBArchive(path, nil)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}

	a.Close()

	version.Version = "v1.2.7"

	patched, err := NewDuckDBArchive(path, nil)
	if err != nil {
		t.Fatalf("patch release should open the archive: %v", err)
	}

	patched.Close()

	version.Version = "v1.3.0"

	if _, err := NewDuckDBArchive(path, nil); !errors.HasCode(err, errors.ErrCodeArchiveIncompatible) {
		t.Fatalf("expected incompatible archive, got %v", err)
	}
}
