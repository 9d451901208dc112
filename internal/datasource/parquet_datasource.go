package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"go.uber.org/zap"
)

var _ DataSource = (*ParquetDataSource)(nil)

// ParquetDataSource streams snapshots out of a parquet file through an in-memory DuckDB view.
type ParquetDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewParquetDataSource(path string, log *logger.Logger) (*ParquetDataSource, error) {
	if log == nil {
		log = logger.Nop()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB", err)
	}

	// CREATE VIEW has no squirrel builder
	query := fmt.Sprintf(`CREATE VIEW market_data AS SELECT * FROM read_parquet('%s');`,
		strings.ReplaceAll(path, "'", "''"))

	if _, err := db.Exec(query); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read parquet file %s", path)
	}

	log.Debug("Opened parquet data source", zap.String("path", path))

	return &ParquetDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// ReadAll implements DataSource.
// Rows are ordered by time so a snapshot is complete as soon as the time changes.
func (d *ParquetDataSource) ReadAll() func(yield func(types.Snapshot, error) bool) {
	return func(yield func(types.Snapshot, error) bool) {
		query, args, err := d.sq.
			Select("time", "symbol", "price", "signal_time").
			From("market_data").
			OrderBy("time ASC", "symbol ASC").
			ToSql()
		if err != nil {
			yield(types.Snapshot{}, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to build query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.Snapshot{}, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to query market data", err))

			return
		}
		defer rows.Close()

		var current *types.Snapshot

		for rows.Next() {
			var (
				at         time.Time
				symbol     string
				price      sql.NullFloat64
				signalTime sql.NullTime
			)

			if err := rows.Scan(&at, &symbol, &price, &signalTime); err != nil {
				yield(types.Snapshot{}, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to scan market data row", err))

				return
			}

			at = at.UTC()

			if current != nil && !current.Time.Equal(at) {
				if !yield(*current, nil) {
					return
				}

				current = nil
			}

			if current == nil {
				current = &types.Snapshot{Time: at, Quotes: map[string]types.Quote{}}
			}

			if _, exists := current.Quotes[symbol]; exists {
				yield(types.Snapshot{}, errors.Newf(errors.ErrCodeDataParseFailed, "duplicate quote for %s at %s", symbol, at.Format(time.RFC3339)))

				return
			}

			current.Quotes[symbol] = types.Quote{
				Price:      nullablePrice(price),
				SignalTime: nullableTime(signalTime),
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Snapshot{}, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to iterate market data", err))

			return
		}

		if current != nil {
			yield(*current, nil)
		}
	}
}

// Count implements DataSource.
func (d *ParquetDataSource) Count() (int, error) {
	query, args, err := d.sq.Select("COUNT(DISTINCT time)").From("market_data").ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to count snapshots", err)
	}

	return count, nil
}

// Close implements DataSource.
func (d *ParquetDataSource) Close() error {
	return d.db.Close()
}

func nullablePrice(value sql.NullFloat64) optional.Option[float64] {
	if !value.Valid {
		return optional.None[float64]()
	}

	return optional.Some(value.Float64)
}

func nullableTime(value sql.NullTime) optional.Option[time.Time] {
	if !value.Valid {
		return optional.None[time.Time]()
	}

	return optional.Some(value.Time.UTC())
}
