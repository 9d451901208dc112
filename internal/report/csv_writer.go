package report

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
)

var _ TripWriter = (*CSVWriter)(nil)

// CSVWriter writes the trip table to a single CSV file, replacing it on every write.
type CSVWriter struct {
	outputPath string
}

// NewCSVWriter creates a new CSVWriter.
// outputPath is the full path to the csv file.
func NewCSVWriter(outputPath string) *CSVWriter {
	return &CSVWriter{outputPath: outputPath}
}

func (w *CSVWriter) WriteTrips(rows []types.TripRow) error {
	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create output directory", err)
	}

	file, err := os.Create(w.outputPath)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create %s", w.outputPath)
	}
	defer file.Close()

	if rows == nil {
		rows = []types.TripRow{}
	}

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write trip rows", err)
	}

	return nil
}

func (w *CSVWriter) OutputPath() string {
	return w.outputPath
}

func (w *CSVWriter) Close() error {
	return nil
}

// ReadTrips loads a trip table written by CSVWriter.
func ReadTrips(path string) ([]types.TripRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open %s", path)
	}
	defer file.Close()

	rows := []types.TripRow{}
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to read trip rows", err)
	}

	return rows, nil
}
