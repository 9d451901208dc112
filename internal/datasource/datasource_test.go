package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DataSourceTestSuite struct {
	suite.Suite
	tmpDir string
}

func TestDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DataSourceTestSuite))
}

func (suite *DataSourceTestSuite) SetupTest() {
	suite.tmpDir = suite.T().TempDir()
}

const sampleCSV = `time,symbol,price,signal_time
2024-01-03,BBB,50.5,
2024-01-02,AAA,100,2024-01-02
2024-01-02,BBB,,
2024-01-03,AAA,101.25,
`

func (suite *DataSourceTestSuite) writeFile(name, content string) string {
	path := filepath.Join(suite.tmpDir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (suite *DataSourceTestSuite) collect(ds DataSource) []types.Snapshot {
	var snapshots []types.Snapshot

	for snapshot, err := range ds.ReadAll() {
		suite.Require().NoError(err)

		snapshots = append(snapshots, snapshot)
	}

	return snapshots
}

func (suite *DataSourceTestSuite) assertSample(snapshots []types.Snapshot) {
	suite.Require().Len(snapshots, 2)

	first := snapshots[0]
	suite.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), first.Time)
	suite.Equal([]string{"AAA", "BBB"}, first.Symbols())
	suite.Equal(100.0, first.Quotes["AAA"].Price.Unwrap())
	suite.True(first.Quotes["AAA"].HasSignal())
	suite.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), first.Quotes["AAA"].SignalTime.Unwrap())
	suite.True(first.Quotes["BBB"].Price.IsNone())
	suite.False(first.Quotes["BBB"].HasSignal())

	second := snapshots[1]
	suite.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), second.Time)
	suite.Equal(101.25, second.Quotes["AAA"].Price.Unwrap())
	suite.Equal(50.5, second.Quotes["BBB"].Price.Unwrap())
}

func (suite *DataSourceTestSuite) TestCSVGroupsRowsIntoSortedSnapshots() {
	ds, err := NewCSVDataSource(suite.writeFile("quotes.csv", sampleCSV), logger.Nop())
	suite.Require().NoError(err)
	defer ds.Close()

	count, err := ds.Count()
	suite.Require().NoError(err)
	suite.Equal(2, count)

	suite.assertSample(suite.collect(ds))
}

func (suite *DataSourceTestSuite) TestCSVStopsWhenConsumerStops() {
	ds, err := NewCSVDataSource(suite.writeFile("quotes.csv", sampleCSV), nil)
	suite.Require().NoError(err)

	seen := 0
	for range ds.ReadAll() {
		seen++

		break
	}

	suite.Equal(1, seen)
}

func (suite *DataSourceTestSuite) TestCSVErrors() {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{
			name:    "bad time",
			content: "time,symbol,price,signal_time\nyesterday,AAA,1,\n",
			code:    errors.ErrCodeDataParseFailed,
		},
		{
			name:    "bad price",
			content: "time,symbol,price,signal_time\n2024-01-02,AAA,abc,\n",
			code:    errors.ErrCodeDataParseFailed,
		},
		{
			name:    "missing symbol",
			content: "time,symbol,price,signal_time\n2024-01-02,,1,\n",
			code:    errors.ErrCodeDataParseFailed,
		},
		{
			name:    "duplicate quote",
			content: "time,symbol,price,signal_time\n2024-01-02,AAA,1,\n2024-01-02,AAA,2,\n",
			code:    errors.ErrCodeDataParseFailed,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := NewCSVDataSource(suite.writeFile("bad.csv", tc.content), nil)
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *DataSourceTestSuite) TestCSVMissingFile() {
	_, err := NewCSVDataSource(filepath.Join(suite.tmpDir, "missing.csv"), nil)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (suite *DataSourceTestSuite) TestTimeLayouts() {
	for _, value := range []string{"2024-01-02T15:04:05Z", "2024-01-02 15:04:05", "2024-01-02T15:04:05"} {
		parsed, err := parseTime(value)
		suite.Require().NoError(err, value)
		suite.Equal(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), parsed, value)
	}
}

func (suite *DataSourceTestSuite) writeParquet(csvPath string) string {
	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	parquetPath := filepath.Join(suite.tmpDir, "quotes.parquet")
	_, err = db.Exec(fmt.Sprintf(`
		COPY (
			SELECT CAST(time AS TIMESTAMP) AS time, symbol,
				CAST(NULLIF(price, '') AS DOUBLE) AS price,
				CAST(NULLIF(signal_time, '') AS TIMESTAMP) AS signal_time
			FROM read_csv('%s', header = true, all_varchar = true)
		) TO '%s' (FORMAT PARQUET);
	`, csvPath, parquetPath))
	suite.Require().NoError(err)

	return parquetPath
}

func (suite *DataSourceTestSuite) TestParquetMatchesCSV() {
	parquetPath := suite.writeParquet(suite.writeFile("quotes.csv", sampleCSV))

	ds, err := Open(parquetPath, logger.Nop())
	suite.Require().NoError(err)
	defer ds.Close()

	suite.IsType(&ParquetDataSource{}, ds)

	count, err := ds.Count()
	suite.Require().NoError(err)
	suite.Equal(2, count)

	suite.assertSample(suite.collect(ds))
}

func (suite *DataSourceTestSuite) TestParquetMissingFile() {
	_, err := NewParquetDataSource(filepath.Join(suite.tmpDir, "missing.parquet"), nil)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (suite *DataSourceTestSuite) TestOpenDefaultsToCSV() {
	ds, err := Open(suite.writeFile("quotes.txt", sampleCSV), nil)
	suite.Require().NoError(err)

	suite.IsType(&CSVDataSource{}, ds)
}
