package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBTickSource reads CSV tick files through an in-process DuckDB view.
// The CSV is expected to carry at least time, symbol and price columns;
// a volume column is optional.
type DuckDBTickSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBTickSource opens a DuckDB database at path (":memory:" or "" for an
// in-memory database). This is distinct from Initialize(), which points the
// source at a tick data file.
func NewDuckDBTickSource(path string, logger *logger.Logger) (TickSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBTickSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements TickSource.
func (d *DuckDBTickSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB tick source", zap.String("path", path))

	// First drop the view if it exists
	_, err := d.db.Exec(`DROP VIEW IF EXISTS ticks;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	// Squirrel doesn't support CREATE VIEW, so use raw SQL. read_csv_auto
	// infers column types including the timestamp.
	query := fmt.Sprintf(`
		CREATE VIEW ticks AS
		SELECT * FROM read_csv_auto('%s');
	`, path)

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load tick data from %s", path)
	}

	return nil
}

// Count implements TickSource.
func (d *DuckDBTickSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query := "SELECT COUNT(*) FROM ticks"

	conditions, params := timeRangeConditions(start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int

	err := d.db.QueryRow(query, params...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count ticks", err)
	}

	return count, nil
}

// ReadAll implements TickSource.
func (d *DuckDBTickSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Tick, error) bool) {
	return func(yield func(types.Tick, error) bool) {
		query := `SELECT time, symbol, price, volume FROM ticks`

		conditions, params := timeRangeConditions(start, end)
		if len(conditions) > 0 {
			query += " WHERE " + strings.Join(conditions, " AND ")
		}

		query += " ORDER BY time ASC"

		rows, err := d.db.Query(query, params...)
		if err != nil {
			yield(types.Tick{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query ticks", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				timestamp time.Time
				symbol    string
				price     float64
				volume    sql.NullFloat64
			)

			if err := rows.Scan(&timestamp, &symbol, &price, &volume); err != nil {
				yield(types.Tick{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan tick", err))

				return
			}

			tick := types.Tick{
				Time:   timestamp,
				Symbol: symbol,
				Price:  price,
				Volume: optional.None[float64](),
			}
			if volume.Valid {
				tick.Volume = optional.Some(volume.Float64)
			}

			if !yield(tick, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Tick{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating ticks", err))
		}
	}
}

// ReadLastTick implements TickSource.
func (d *DuckDBTickSource) ReadLastTick(symbol string) (types.Tick, error) {
	query, args, err := d.sq.
		Select("time", "symbol", "price", "volume").
		From("ticks").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var (
		timestamp time.Time
		sym       string
		price     float64
		volume    sql.NullFloat64
	)

	err = d.db.QueryRow(query, args...).Scan(&timestamp, &sym, &price, &volume)
	if err == sql.ErrNoRows {
		return types.Tick{}, errors.Newf(errors.ErrCodeNoDataFound, "no ticks found for symbol %s", symbol)
	}

	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read last tick", err)
	}

	tick := types.Tick{
		Time:   timestamp,
		Symbol: sym,
		Price:  price,
		Volume: optional.None[float64](),
	}
	if volume.Valid {
		tick.Volume = optional.Some(volume.Float64)
	}

	return tick, nil
}

// ExecuteSQL implements TickSource.
func (d *DuckDBTickSource) ExecuteSQL(query string, params ...interface{}) ([]SQLResult, error) {
	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get columns", err)
	}

	var results []SQLResult

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
		}

		row := SQLResult{Values: make(map[string]interface{}, len(columns))}
		for i, col := range columns {
			row.Values[col] = values[i]
		}

		results = append(results, row)
	}

	return results, rows.Err()
}

// Close implements TickSource.
func (d *DuckDBTickSource) Close() error {
	return d.db.Close()
}

func timeRangeConditions(start optional.Option[time.Time], end optional.Option[time.Time]) ([]string, []interface{}) {
	var conditions []string

	var params []interface{}

	if start.IsSome() {
		params = append(params, start.Unwrap())
		conditions = append(conditions, fmt.Sprintf("time >= $%d", len(params)))
	}

	if end.IsSome() {
		params = append(params, end.Unwrap())
		conditions = append(conditions, fmt.Sprintf("time <= $%d", len(params)))
	}

	return conditions, params
}
