package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-bracket/internal/archive"
	"github.com/rxtech-lab/argo-bracket/internal/bracket"
	"github.com/rxtech-lab/argo-bracket/internal/datasource"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/report"
	"github.com/rxtech-lab/argo-bracket/internal/trading/commission_fee"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/mocks"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"
)

type RunnerTestSuite struct {
	suite.Suite
	tmpDir string
	config RunConfig
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (suite *RunnerTestSuite) SetupTest() {
	suite.tmpDir = suite.T().TempDir()
	suite.config = RunConfig{
		Config: bracket.Config{
			MaxHoldingDays:       5,
			ProfitTargetFraction: 0.05,
			StopLossFraction:     0.03,
			AllocationPerSignal:  1000,
			Side:                 types.SideLong,
			PricePrecision:       2,
		},
		StartingCash: 10000,
		Commission:   commission_fee.BrokerZero,
	}
}

// January 2024 sessions from Tuesday the 2nd. AAA never reaches its bracket and leaves on the
// time exit, BBB hits its profit target the day after the entry fills.
type scenarioDay struct {
	date   string
	aaa    float64
	bbb    float64
	signal bool
}

var scenario = []scenarioDay{
	{"2024-01-02", 100, 50, true},
	{"2024-01-03", 100, 50, false},
	{"2024-01-04", 101, 53, false},
	{"2024-01-05", 101, 53, false},
	{"2024-01-08", 101, 53, false},
	{"2024-01-09", 101, 53, false},
	{"2024-01-10", 101, 53, false},
	{"2024-01-11", 102, 53, false},
	{"2024-01-12", 102, 53, false},
}

func (suite *RunnerTestSuite) writeScenario(days []scenarioDay) string {
	var b strings.Builder

	b.WriteString("time,symbol,price,signal_time\n")

	for _, row := range days {
		signal := ""
		if row.signal {
			signal = row.date
		}

		fmt.Fprintf(&b, "%s,AAA,%v,%s\n", row.date, row.aaa, signal)
		fmt.Fprintf(&b, "%s,BBB,%v,%s\n", row.date, row.bbb, signal)
	}

	path := filepath.Join(suite.tmpDir, "snapshots.csv")
	suite.Require().NoError(os.WriteFile(path, []byte(b.String()), 0o600))

	return path
}

func (suite *RunnerTestSuite) newRunner(opts ...Option) *Runner {
	return suite.newRunnerFor(scenario, opts...)
}

func (suite *RunnerTestSuite) newRunnerFor(days []scenarioDay, opts ...Option) *Runner {
	source, err := datasource.NewCSVDataSource(suite.writeScenario(days), logger.Nop())
	suite.Require().NoError(err)

	runner, err := NewRunner(suite.config, source, opts...)
	suite.Require().NoError(err)

	return runner
}

func date(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func tripFor(rows []types.TripRow, symbol string) types.TripRow {
	for _, row := range rows {
		if row.Symbol == symbol {
			return row
		}
	}

	return types.TripRow{}
}

func (suite *RunnerTestSuite) TestScenario() {
	outputDir := filepath.Join(suite.tmpDir, "out")

	result, err := suite.newRunner().Run(context.Background(), outputDir)
	suite.Require().NoError(err)

	suite.Require().Len(result.Trips.Rows, 2)
	suite.Empty(result.Trips.Diagnostics)

	timeExit := tripFor(result.Trips.Rows, "AAA")
	suite.Equal(date(3), timeExit.EntryTime)
	suite.Equal(date(11), timeExit.ExitTime)
	suite.Equal(6, timeExit.DaysOpen)
	suite.Equal(10.0, timeExit.Shares)
	suite.Equal(100.0, timeExit.EntryPrice)
	suite.Equal(102.0, timeExit.ExitPrice)
	suite.InDelta(20.0, timeExit.PnL, 1e-9)
	suite.Equal(types.SlotTimeExit.Label(), timeExit.ExitReason)

	profitTarget := tripFor(result.Trips.Rows, "BBB")
	suite.Equal(date(4), profitTarget.ExitTime)
	suite.Equal(1, profitTarget.DaysOpen)
	suite.Equal(20.0, profitTarget.Shares)
	suite.Equal(52.5, profitTarget.ExitPrice)
	suite.InDelta(50.0, profitTarget.PnL, 1e-9)
	suite.Equal(types.SlotProfitTarget.Label(), profitTarget.ExitReason)

	summary := result.Summary
	suite.Equal(len(scenario), summary.Ticks)
	suite.Equal(0, summary.OpenEvents)
	suite.Equal(2, summary.Trips.NumberOfTrips)
	suite.InDelta(70.0, summary.Trips.TotalPnL, 1e-9)
	suite.Equal(4, summary.Transactions.Count)
	suite.InDelta(10070.0, summary.Cash, 1e-9)
	suite.Empty(result.Positions)

	rows, err := report.ReadTrips(result.TripsCSV)
	suite.Require().NoError(err)
	suite.Len(rows, 2)
	suite.FileExists(result.TripsParquet)

	data, err := os.ReadFile(result.SummaryPath)
	suite.Require().NoError(err)

	written := Summary{}
	suite.Require().NoError(yaml.Unmarshal(data, &written))
	suite.Equal(2, written.Trips.NumberOfTrips)
}

// The data stops on the 4th, the tick BBB's profit target fills. BBB is still live because its
// stop loss cancel has not been confirmed, AAA holds an open position.
func (suite *RunnerTestSuite) TestRunEndingOnExitFillReportsLiveTrip() {
	result, err := suite.newRunnerFor(scenario[:3]).Run(context.Background(), filepath.Join(suite.tmpDir, "out"))
	suite.Require().NoError(err)

	suite.Equal(2, result.Summary.OpenEvents)
	suite.Len(result.OpenEvents, 2)
	suite.Equal(3, result.Summary.Transactions.Count)

	suite.Require().Len(result.Trips.Rows, 1)

	profitTarget := result.Trips.Rows[0]
	suite.Equal("BBB", profitTarget.Symbol)
	suite.Equal(date(3), profitTarget.EntryTime)
	suite.Equal(date(4), profitTarget.ExitTime)
	suite.Equal(20.0, profitTarget.Shares)
	suite.Equal(52.5, profitTarget.ExitPrice)
	suite.InDelta(50.0, profitTarget.PnL, 1e-9)
	suite.Equal(types.SlotProfitTarget, profitTarget.ExitSlot)

	suite.Require().Len(result.Trips.Diagnostics, 1)
	suite.Equal(errors.ErrCodeUnreconciledExit, result.Trips.Diagnostics[0].Code)
	suite.Equal("AAA", result.Trips.Diagnostics[0].Event.Symbol)

	rows, err := report.ReadTrips(result.TripsCSV)
	suite.Require().NoError(err)
	suite.Len(rows, 1)
	suite.Equal(1, result.Summary.Trips.NumberOfTrips)
}

// With the 8th a holiday its snapshot is not replayed, so AAA reaches five sessions on the 11th
// and the time exit fills on the 12th.
func (suite *RunnerTestSuite) TestHolidaySnapshotIsNotReplayed() {
	suite.config.Holidays = []string{"2024-01-08"}

	calls := 0
	runner := suite.newRunner(WithOnProcessData(func(current, total int) error {
		calls++

		return nil
	}))

	result, err := runner.Run(context.Background(), filepath.Join(suite.tmpDir, "out"))
	suite.Require().NoError(err)

	suite.Equal(len(scenario)-1, result.Summary.Ticks)
	suite.Equal(1, result.Summary.NonSessionTicks)
	suite.Equal(len(scenario), calls)
	suite.Empty(result.OpenEvents)

	timeExit := tripFor(result.Trips.Rows, "AAA")
	suite.Equal(date(12), timeExit.ExitTime)
	suite.Equal(6, timeExit.DaysOpen)
	suite.Equal(102.0, timeExit.ExitPrice)
	suite.Equal(types.SlotTimeExit, timeExit.ExitSlot)
}

func (suite *RunnerTestSuite) TestArchiveReadFailureStopsRun() {
	ctrl := gomock.NewController(suite.T())
	eventArchive := mocks.NewMockArchive(ctrl)
	eventArchive.EXPECT().Len().Return(0).AnyTimes()
	eventArchive.EXPECT().Contains(gomock.Any()).Return(false).AnyTimes()
	eventArchive.EXPECT().Archive(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	eventArchive.EXPECT().Entries().Return(nil, errors.New(errors.ErrCodeArchiveStorageFailed, "disk gone"))

	outputDir := filepath.Join(suite.tmpDir, "out")

	_, err := suite.newRunner(WithArchive(eventArchive)).Run(context.Background(), outputDir)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeArchiveStorageFailed))
	suite.NoDirExists(outputDir)
}

func (suite *RunnerTestSuite) TestRerunIntoSameOutput() {
	outputDir := filepath.Join(suite.tmpDir, "out")

	for range 2 {
		_, err := suite.newRunner().Run(context.Background(), outputDir)
		suite.Require().NoError(err)
	}

	writer := report.NewDuckDBWriter(filepath.Join(outputDir, TripsParquetFile))
	suite.Require().NoError(writer.Initialize())
	defer writer.Close()

	count, err := writer.GetTripCount()
	suite.Require().NoError(err)
	suite.Equal(2, count)
}

func (suite *RunnerTestSuite) TestPersistedArchiveIsNotReplayed() {
	archivePath := filepath.Join(suite.tmpDir, "archive.duckdb")

	first, err := archive.NewDuckDBArchive(archivePath, logger.Nop())
	suite.Require().NoError(err)

	result, err := suite.newRunner(WithArchive(first)).Run(context.Background(), filepath.Join(suite.tmpDir, "first"))
	suite.Require().NoError(err)
	suite.Len(result.Trips.Rows, 2)
	suite.Equal(2, first.Len())
	suite.Require().NoError(first.Close())

	second, err := archive.NewDuckDBArchive(archivePath, logger.Nop())
	suite.Require().NoError(err)
	defer second.Close()

	result, err = suite.newRunner(WithArchive(second)).Run(context.Background(), filepath.Join(suite.tmpDir, "second"))
	suite.Require().NoError(err)
	suite.Empty(result.Trips.Rows)
	suite.Empty(result.Trips.Diagnostics)
	suite.Equal(0, result.Summary.Transactions.Count)
	suite.Equal(2, second.Len())
}

func (suite *RunnerTestSuite) TestMetricsAreRegistered() {
	registry := prometheus.NewRegistry()

	_, err := suite.newRunner(WithRegisterer(registry)).Run(context.Background(), filepath.Join(suite.tmpDir, "out"))
	suite.Require().NoError(err)

	count, err := testutil.GatherAndCount(registry, "bracket_events_archived_total", "bracket_orders_submitted_total")
	suite.Require().NoError(err)
	// one archived counter plus a series per submitted slot kind
	suite.Equal(1+len(types.AllSlotKinds), count)
}

func (suite *RunnerTestSuite) TestProgressCallback() {
	calls := 0

	_, err := suite.newRunner(WithOnProcessData(func(current, total int) error {
		calls++
		suite.Equal(len(scenario), total)
		suite.Equal(calls, current)

		return nil
	})).Run(context.Background(), filepath.Join(suite.tmpDir, "out"))
	suite.Require().NoError(err)
	suite.Equal(len(scenario), calls)
}

func (suite *RunnerTestSuite) TestCallbackErrorStopsRun() {
	stop := errors.New(errors.ErrCodeUnknown, "stop")

	_, err := suite.newRunner(WithOnProcessData(func(current, _ int) error {
		if current == 2 {
			return stop
		}

		return nil
	})).Run(context.Background(), filepath.Join(suite.tmpDir, "out"))
	suite.ErrorIs(err, stop)
}

func (suite *RunnerTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.newRunner().Run(ctx, filepath.Join(suite.tmpDir, "out"))
	suite.ErrorIs(err, context.Canceled)
}

func (suite *RunnerTestSuite) TestInvalidConfig() {
	suite.config.StartingCash = 0

	source, err := datasource.NewCSVDataSource(suite.writeScenario(scenario), nil)
	suite.Require().NoError(err)

	_, err = NewRunner(suite.config, source)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	suite.config.StartingCash = 1000
	_, err = NewRunner(suite.config, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
