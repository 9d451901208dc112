package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
)

var _ TripWriter = (*DuckDBWriter)(nil)

// DuckDBWriter keeps trips in an in-memory DuckDB table and exports them to a parquet file.
type DuckDBWriter struct {
	db         *sql.DB
	sq         squirrel.StatementBuilderType
	outputPath string
	mu         sync.Mutex
}

// NewDuckDBWriter creates a new DuckDBWriter.
// outputPath is the full path to the parquet file.
func NewDuckDBWriter(outputPath string) *DuckDBWriter {
	return &DuckDBWriter{
		db:         nil,
		sq:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		outputPath: outputPath,
		mu:         sync.Mutex{},
	}
}

// Initialize sets up the trips table. Trips already present in the parquet file are loaded back.
func (w *DuckDBWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Create the data directory if it doesn't exist
	dir := filepath.Dir(w.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create data directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to open DuckDB connection", err)
	}

	w.db = db

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS trips (
			event_id TEXT,
			symbol TEXT,
			entry_ts TIMESTAMP,
			exit_ts TIMESTAMP,
			days_open INTEGER,
			shares DOUBLE,
			entry_price DOUBLE,
			exit_price DOUBLE,
			pnl DOUBLE,
			exit_reason TEXT,
			exit_slot TEXT
		)
	`)
	if err != nil {
		w.db.Close()
		w.db = nil

		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create trips table", err)
	}

	if _, err := os.Stat(w.outputPath); err == nil {
		_, err = w.db.Exec(fmt.Sprintf(`
			INSERT INTO trips
			SELECT * FROM read_parquet('%s')
		`, w.outputPath))
		if err != nil {
			w.db.Close()
			w.db = nil

			return errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to load existing trips from %s", w.outputPath)
		}
	}

	return nil
}

// WriteTrips inserts the rows and exports the table to parquet.
func (w *DuckDBWriter) WriteTrips(rows []types.TripRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeWriteFailed, "writer not initialized")
	}

	if len(rows) > 0 {
		insert := w.sq.
			Insert("trips").
			Columns(
				"event_id", "symbol", "entry_ts", "exit_ts", "days_open", "shares",
				"entry_price", "exit_price", "pnl", "exit_reason", "exit_slot",
			)

		for _, row := range rows {
			insert = insert.Values(
				row.EventID, row.Symbol, row.EntryTime, row.ExitTime, row.DaysOpen, row.Shares,
				row.EntryPrice, row.ExitPrice, row.PnL, row.ExitReason, string(row.ExitSlot),
			)
		}

		if _, err := insert.RunWith(w.db).Exec(); err != nil {
			return errors.Wrap(errors.ErrCodeWriteFailed, "failed to insert trips", err)
		}
	}

	return w.exportToParquet()
}

// Flush forces an export to parquet.
func (w *DuckDBWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeWriteFailed, "writer not initialized")
	}

	return w.exportToParquet()
}

func (w *DuckDBWriter) OutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *DuckDBWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}

		w.db = nil
	}

	return nil
}

func (w *DuckDBWriter) exportToParquet() error {
	// Using raw SQL as Squirrel doesn't support COPY
	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM trips ORDER BY exit_ts ASC, event_id ASC)
		TO '%s' (FORMAT PARQUET)
	`, w.outputPath))
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to export to parquet", err)
	}

	return nil
}

// GetTripCount returns the number of trips stored.
func (w *DuckDBWriter) GetTripCount() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "writer not initialized")
	}

	var count int

	err := w.sq.Select("COUNT(*)").From("trips").RunWith(w.db).QueryRow().Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}

	return count, nil
}

// GetTotalPnL returns the sum of all trip pnl.
func (w *DuckDBWriter) GetTotalPnL() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "writer not initialized")
	}

	var totalPnL sql.NullFloat64

	err := w.sq.Select("SUM(pnl)").From("trips").RunWith(w.db).QueryRow().Scan(&totalPnL)
	if err != nil {
		return 0, fmt.Errorf("failed to sum pnl: %w", err)
	}

	if !totalPnL.Valid {
		return 0, nil
	}

	return totalPnL.Float64, nil
}

// CountByExitReason returns the number of trips per exit reason label.
func (w *DuckDBWriter) CountByExitReason() (map[string]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil, errors.New(errors.ErrCodeWriteFailed, "writer not initialized")
	}

	rows, err := w.sq.
		Select("exit_reason", "COUNT(*)").
		From("trips").
		GroupBy("exit_reason").
		RunWith(w.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to count exit reasons: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}

	for rows.Next() {
		var (
			reason string
			count  int
		)

		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan exit reason: %w", err)
		}

		counts[reason] = count
	}

	return counts, rows.Err()
}
