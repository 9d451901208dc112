// Package datasource reads market snapshots for replay.
package datasource

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
)

type DataSource interface {
	// ReadAll yields the snapshots in time order.
	ReadAll() func(yield func(types.Snapshot, error) bool)
	// Count returns the number of snapshots.
	Count() (int, error)
	// Close releases any resources
	Close() error
}

// QuoteRow is one symbol at one point in time. An empty price or signal_time means there is none.
type QuoteRow struct {
	Time       string `csv:"time"`
	Symbol     string `csv:"symbol"`
	Price      string `csv:"price"`
	SignalTime string `csv:"signal_time"`
}

// Open picks the source from the file extension: .parquet is read with DuckDB, anything else as csv.
func Open(path string, log *logger.Logger) (DataSource, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return NewParquetDataSource(path, log)
	}

	return NewCSVDataSource(path, log)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, errors.Newf(errors.ErrCodeDataParseFailed, "unsupported time format: %q", value)
}

func parseOptionalTime(value string) (optional.Option[time.Time], error) {
	if strings.TrimSpace(value) == "" {
		return optional.None[time.Time](), nil
	}

	t, err := parseTime(value)
	if err != nil {
		return optional.None[time.Time](), err
	}

	return optional.Some(t), nil
}

func parseOptionalPrice(value string) (optional.Option[float64], error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return optional.None[float64](), nil
	}

	price, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return optional.None[float64](), errors.Wrapf(errors.ErrCodeDataParseFailed, err, "invalid price %q", value)
	}

	return optional.Some(price), nil
}

// snapshotBuilder folds per symbol quotes into one snapshot per time.
type snapshotBuilder struct {
	snapshots map[time.Time]*types.Snapshot
}

func newSnapshotBuilder() *snapshotBuilder {
	return &snapshotBuilder{snapshots: make(map[time.Time]*types.Snapshot)}
}

func (b *snapshotBuilder) add(at time.Time, symbol string, quote types.Quote) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return errors.Newf(errors.ErrCodeDataParseFailed, "row at %s has no symbol", at.Format(time.RFC3339))
	}

	snapshot, ok := b.snapshots[at]
	if !ok {
		snapshot = &types.Snapshot{Time: at, Quotes: map[string]types.Quote{}}
		b.snapshots[at] = snapshot
	}

	if _, exists := snapshot.Quotes[symbol]; exists {
		return errors.Newf(errors.ErrCodeDataParseFailed, "duplicate quote for %s at %s", symbol, at.Format(time.RFC3339))
	}

	snapshot.Quotes[symbol] = quote

	return nil
}

func (b *snapshotBuilder) build() []types.Snapshot {
	snapshots := make([]types.Snapshot, 0, len(b.snapshots))
	for _, snapshot := range b.snapshots {
		snapshots = append(snapshots, *snapshot)
	}

	slices.SortFunc(snapshots, func(a, c types.Snapshot) int {
		return a.Time.Compare(c.Time)
	})

	return snapshots
}
