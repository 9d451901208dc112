package datasource

import (
	"os"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"go.uber.org/zap"
)

var _ DataSource = (*CSVDataSource)(nil)

// CSVDataSource loads a csv file with the columns time,symbol,price,signal_time into memory.
type CSVDataSource struct {
	filePath  string
	snapshots []types.Snapshot
}

func NewCSVDataSource(filePath string, log *logger.Logger) (*CSVDataSource, error) {
	if log == nil {
		log = logger.Nop()
	}

	csvFile, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open CSV file %s", filePath)
	}
	defer csvFile.Close()

	rows := []QuoteRow{}
	if err := gocsv.UnmarshalFile(csvFile, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to unmarshal CSV", err)
	}

	snapshots, err := snapshotsFromRows(rows)
	if err != nil {
		return nil, err
	}

	log.Debug("Loaded snapshots from CSV",
		zap.String("path", filePath),
		zap.Int("rows", len(rows)),
		zap.Int("snapshots", len(snapshots)),
	)

	return &CSVDataSource{filePath: filePath, snapshots: snapshots}, nil
}

func snapshotsFromRows(rows []QuoteRow) ([]types.Snapshot, error) {
	builder := newSnapshotBuilder()

	for i, row := range rows {
		at, err := parseTime(row.Time)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "row %d", i+1)
		}

		price, err := parseOptionalPrice(row.Price)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "row %d", i+1)
		}

		signalTime, err := parseOptionalTime(row.SignalTime)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "row %d", i+1)
		}

		if err := builder.add(at, row.Symbol, types.Quote{Price: price, SignalTime: signalTime}); err != nil {
			return nil, err
		}
	}

	return builder.build(), nil
}

// ReadAll implements DataSource.
func (d *CSVDataSource) ReadAll() func(yield func(types.Snapshot, error) bool) {
	return func(yield func(types.Snapshot, error) bool) {
		for _, snapshot := range d.snapshots {
			if !yield(snapshot, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (d *CSVDataSource) Count() (int, error) {
	return len(d.snapshots), nil
}

// Close implements DataSource.
func (d *CSVDataSource) Close() error {
	d.snapshots = nil

	return nil
}
