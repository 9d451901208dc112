package replay

import (
	"context"
	"math"
	"path/filepath"

	"github.com/rxtech-lab/argo-bracket/internal/archive"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/mocks"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/shopspring/decimal"
)

// sliceSource replays generated snapshots.
type sliceSource struct {
	snapshots []types.Snapshot
}

func (s *sliceSource) ReadAll() func(yield func(types.Snapshot, error) bool) {
	return func(yield func(types.Snapshot, error) bool) {
		for _, snapshot := range s.snapshots {
			if !yield(snapshot, nil) {
				return
			}
		}
	}
}

func (s *sliceSource) Count() (int, error) {
	return len(s.snapshots), nil
}

func (s *sliceSource) Close() error {
	return nil
}

// bracketPrice is entry * (1 + fraction) rounded to cents.
func bracketPrice(entry, fraction float64) float64 {
	price, _ := decimal.NewFromFloat(entry).
		Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(fraction))).
		Round(2).
		Float64()

	return price
}

func (suite *RunnerTestSuite) runGenerated(side types.Side, seed int64) (Result, *archive.MemoryArchive) {
	config := mocks.DefaultConfig()
	config.Symbols = []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN"}
	config.Count = 500
	config.SignalProbability = 0.15

	suite.config.Side = side
	eventArchive := archive.NewMemoryArchive()

	runner, err := NewRunner(suite.config, &sliceSource{snapshots: mocks.NewSnapshotGenerator(seed).Generate(config)},
		WithArchive(eventArchive),
	)
	suite.Require().NoError(err)

	result, err := runner.Run(context.Background(), filepath.Join(suite.T().TempDir(), "out"))
	suite.Require().NoError(err)

	return result, eventArchive
}

func (suite *RunnerTestSuite) TestGeneratedYearsReconcile() {
	for _, side := range []types.Side{types.SideLong, types.SideShort} {
		for _, seed := range []int64{1, 7, 42} {
			result, eventArchive := suite.runGenerated(side, seed)

			suite.NotEmpty(result.Trips.Rows, "side %s seed %d", side, seed)

			// only events still open at the end of the data may lack an exit fill
			for _, diagnostic := range result.Trips.Diagnostics {
				suite.Contains(result.OpenEvents, diagnostic.Event, "side %s seed %d", side, seed)
				suite.Contains([]errors.ErrorCode{errors.ErrCodeUnreconciledEntry, errors.ErrCodeUnreconciledExit}, diagnostic.Code)
			}

			suite.Equal(eventArchive.Len()+len(result.OpenEvents), len(result.Trips.Rows)+len(result.Trips.Diagnostics))

			pt := suite.config.ProfitTargetFraction
			sl := suite.config.StopLossFraction

			for _, row := range result.Trips.Rows {
				suite.Equal(side.Float(), math.Copysign(1, row.Shares), "trip %s", row.EventID)
				suite.True(row.ExitTime.After(row.EntryTime), "trip %s", row.EventID)

				target := bracketPrice(row.EntryPrice, pt*side.Float())
				stop := bracketPrice(row.EntryPrice, -sl*side.Float())

				switch row.ExitSlot {
				case types.SlotProfitTarget:
					suite.InDelta(target, row.ExitPrice, 1e-9, "trip %s", row.EventID)
					suite.Positive(row.PnL, "trip %s", row.EventID)
				case types.SlotStopLoss:
					// stops fill at the tick price, which can gap through the stop
					suite.LessOrEqual((row.ExitPrice-stop)*side.Float(), 1e-9, "trip %s", row.EventID)
					suite.Negative(row.PnL, "trip %s", row.EventID)
				case types.SlotTimeExit:
					suite.GreaterOrEqual(row.DaysOpen, suite.config.MaxHoldingDays, "trip %s", row.EventID)
				default:
					suite.Failf("unexpected exit slot", "trip %s exited via %s", row.EventID, row.ExitSlot)
				}
			}
		}
	}
}

func (suite *RunnerTestSuite) TestGeneratedRunIsDeterministic() {
	first, _ := suite.runGenerated(types.SideLong, 99)
	second, _ := suite.runGenerated(types.SideLong, 99)

	suite.Equal(first.Summary, second.Summary)
	suite.Equal(first.Trips.Rows, second.Trips.Rows)
}
