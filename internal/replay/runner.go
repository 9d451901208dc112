// Package replay drives recorded snapshots through the paper broker and the bracket manager.
package replay

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-bracket/internal/archive"
	"github.com/rxtech-lab/argo-bracket/internal/bracket"
	"github.com/rxtech-lab/argo-bracket/internal/calendar"
	"github.com/rxtech-lab/argo-bracket/internal/datasource"
	"github.com/rxtech-lab/argo-bracket/internal/ledger"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/report"
	"github.com/rxtech-lab/argo-bracket/internal/trading/commission_fee"
	"github.com/rxtech-lab/argo-bracket/internal/trading/paper"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	TripsCSVFile     = "trips.csv"
	TripsParquetFile = "trips.parquet"
	SummaryFile      = "summary.yaml"
)

// OnProcessDataCallback is called after each snapshot is processed.
type OnProcessDataCallback func(current int, total int) error

// Summary is written next to the trip table.
type Summary struct {
	Ticks int `yaml:"ticks"`
	// NonSessionTicks counts snapshots dated on a weekend or holiday, which are not replayed.
	NonSessionTicks int                       `yaml:"non_session_ticks"`
	SideEffects     int                       `yaml:"side_effects"`
	OpenEvents      int                       `yaml:"open_events"`
	Skipped         int                       `yaml:"skipped"`
	MissingPrice    int                       `yaml:"missing_price"`
	Diagnostics     int                       `yaml:"diagnostics"`
	Cash            float64                   `yaml:"cash"`
	Equity          float64                   `yaml:"equity"`
	Trips           types.TripSummary         `yaml:"trips"`
	Transactions    report.TransactionSummary `yaml:"transactions"`
}

// Result is everything a finished replay produced.
type Result struct {
	Summary   Summary
	Trips     report.TripTable
	Positions []types.Position
	// OpenEvents are the events still in the live ledger after the last tick.
	OpenEvents   []types.EventID
	TripsCSV     string
	TripsParquet string
	SummaryPath  string
}

type Runner struct {
	config     RunConfig
	source     datasource.DataSource
	archive    archive.Archive
	registerer prometheus.Registerer
	log        *logger.Logger
	showBar    bool
	onProcess  optional.Option[OnProcessDataCallback]
}

type Option func(*Runner)

// WithArchive sets where resolved events go. Defaults to an in-memory archive.
func WithArchive(a archive.Archive) Option {
	return func(r *Runner) {
		r.archive = a
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithRegisterer registers the manager metrics. Without it the metrics are kept but not exported.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(r *Runner) {
		r.registerer = registerer
	}
}

// WithProgressBar renders a progress bar on stderr while the snapshots are replayed.
func WithProgressBar() Option {
	return func(r *Runner) {
		r.showBar = true
	}
}

func WithOnProcessData(callback OnProcessDataCallback) Option {
	return func(r *Runner) {
		r.onProcess = optional.Some(callback)
	}
}

func NewRunner(config RunConfig, source datasource.DataSource, opts ...Option) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if source == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "data source is required")
	}

	r := &Runner{
		config: config,
		source: source,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.archive == nil {
		r.archive = archive.NewMemoryArchive()
	}

	if r.log == nil {
		r.log = logger.Nop()
	}

	return r, nil
}

// Run replays every snapshot and writes the trip table, its parquet copy and the summary into outputDir.
// Each snapshot first goes to the broker, so orders placed on a tick fill on the next one.
func (r *Runner) Run(ctx context.Context, outputDir string) (Result, error) {
	holidays, err := r.config.HolidayDates()
	if err != nil {
		return Result{}, err
	}

	cal := calendar.NewWeekdayCalendar(time.UTC, holidays...)
	broker := paper.NewBroker(r.config.StartingCash, commission_fee.GetCommissionFeeHandler(r.config.Commission), r.log)

	metrics, err := bracket.NewMetrics(r.registerer)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to register metrics", err)
	}

	manager, err := bracket.NewManager(r.config.Config, broker, broker, cal,
		bracket.WithArchive(r.archive),
		bracket.WithLogger(r.log),
		bracket.WithMetrics(metrics),
	)
	if err != nil {
		return Result{}, err
	}

	total, err := r.source.Count()
	if err != nil {
		return Result{}, err
	}

	// events archived by earlier runs have no fills in this broker
	archivedBefore := r.archive.Len()

	var bar *progressbar.ProgressBar
	if r.showBar {
		bar = progressbar.Default(int64(total), "replaying")
	}

	summary := Summary{}
	processed := 0

	for snapshot, err := range r.source.ReadAll() {
		if err != nil {
			return Result{}, err
		}

		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		// no session means nothing trades, so neither broker nor manager sees the snapshot
		if cal.IsTradingDay(snapshot.Time) {
			broker.ProcessTick(snapshot)

			effects, err := manager.OnTick(ctx, snapshot)
			if err != nil {
				r.log.Error("Replay stopped",
					zap.Time("time", snapshot.Time),
					zap.Error(err),
				)

				return Result{}, err
			}

			summary.Ticks++
			summary.SideEffects += len(effects)
		} else {
			summary.NonSessionTicks++
			r.log.Warn("Snapshot outside a trading session skipped", zap.Time("time", snapshot.Time))
		}

		processed++

		if bar != nil {
			_ = bar.Add(1)
		}

		if r.onProcess.IsSome() {
			if err := r.onProcess.Unwrap()(processed, total); err != nil {
				return Result{}, err
			}
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	records, err := r.archive.Entries()
	if err != nil {
		r.log.Error("Failed to read archived events", zap.Error(err))

		return Result{}, err
	}

	if archivedBefore <= len(records) {
		records = records[archivedBefore:]
	}

	// an event still live at the last tick can already hold its entry and exit fills
	live := manager.Ledger()
	records = append(records, liveRecords(live)...)

	table, err := report.NewTripTableBuilder(cal, r.log).Build(records, broker.Transactions())
	if err != nil {
		return Result{}, err
	}

	summary.OpenEvents = len(live)
	summary.Skipped = len(manager.Skipped())
	summary.MissingPrice = len(manager.MissingPrice())
	summary.Diagnostics = len(table.Diagnostics)
	summary.Cash = broker.Cash()
	summary.Equity = broker.Equity()
	summary.Trips = report.Summarize(table.Rows)
	summary.Transactions = report.SummarizeTransactions(broker.Transactions())

	result := Result{
		Summary:    summary,
		Trips:      table,
		Positions:  broker.Positions(),
		OpenEvents: sortedEventIDs(live),
	}

	if err := r.writeResults(outputDir, &result); err != nil {
		return Result{}, err
	}

	r.log.Info("Replay finished",
		zap.Int("ticks", summary.Ticks),
		zap.Int("trips", summary.Trips.NumberOfTrips),
		zap.Float64("total_pnl", summary.Trips.TotalPnL),
		zap.Float64("win_rate", summary.Trips.WinRate),
		zap.Int("open_events", summary.OpenEvents),
		zap.Int("diagnostics", summary.Diagnostics),
		zap.String("output", outputDir),
	)

	return result, nil
}

func liveRecords(live map[types.EventID]ledger.Entry) []archive.EventRecord {
	records := make([]archive.EventRecord, 0, len(live))
	for _, id := range sortedEventIDs(live) {
		records = append(records, archive.EventRecord{ID: id, Entry: live[id]})
	}

	return records
}

func sortedEventIDs(live map[types.EventID]ledger.Entry) []types.EventID {
	ids := slices.Collect(maps.Keys(live))
	slices.SortFunc(ids, types.EventID.Compare)

	return ids
}

func (r *Runner) writeResults(outputDir string, result *Result) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create output directory %s", outputDir)
	}

	writers := []report.TripWriter{
		report.NewCSVWriter(filepath.Join(outputDir, TripsCSVFile)),
	}

	// the parquet writer reloads an existing file, so a previous run's trips must go first
	parquetPath := filepath.Join(outputDir, TripsParquetFile)
	if err := os.Remove(parquetPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to remove %s", parquetPath)
	}

	parquetWriter := report.NewDuckDBWriter(parquetPath)
	if err := parquetWriter.Initialize(); err != nil {
		return err
	}

	writers = append(writers, parquetWriter)

	for _, writer := range writers {
		if err := writer.WriteTrips(result.Trips.Rows); err != nil {
			writer.Close()

			return err
		}

		if err := writer.Close(); err != nil {
			return err
		}
	}

	result.TripsCSV = writers[0].OutputPath()
	result.TripsParquet = parquetWriter.OutputPath()
	result.SummaryPath = filepath.Join(outputDir, SummaryFile)

	data, err := yaml.Marshal(result.Summary)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to marshal summary", err)
	}

	if err := os.WriteFile(result.SummaryPath, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write summary", err)
	}

	return nil
}
