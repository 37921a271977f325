package backtest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"go.uber.org/zap"
)

// Trade is one executed fill derived from a signal. PnL is set on fills that
// reduce or flatten the position.
type Trade struct {
	ID     string           `yaml:"id"`
	Time   time.Time        `yaml:"time"`
	Symbol string           `yaml:"symbol"`
	Action types.ActionType `yaml:"action"`
	Qty    decimal.Decimal  `yaml:"qty"`
	Price  decimal.Decimal  `yaml:"price"`
	PnL    decimal.Decimal  `yaml:"pnl"`
}

// EquityPoint is one mark-to-market sample of the account.
type EquityPoint struct {
	Time     time.Time `yaml:"time"`
	Equity   float64   `yaml:"equity"`
	Drawdown float64   `yaml:"drawdown"`
}

// BacktestState keeps the run's signals, trades and equity curve in an
// in-memory DuckDB so stats come out of SQL and the tables can be exported
// next to the report.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewBacktestState opens an in-memory DuckDB state store.
func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open state database", err)
	}

	return &BacktestState{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the signal, trade and equity tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			signal_id TEXT PRIMARY KEY,
			node_id TEXT,
			symbol TEXT,
			action TEXT,
			price DOUBLE,
			timestamp TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create signals table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			symbol TEXT,
			action TEXT,
			quantity DOUBLE,
			price DOUBLE,
			pnl DOUBLE,
			timestamp TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create trades table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			timestamp TIMESTAMP,
			equity DOUBLE,
			drawdown DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create equity table", err)
	}

	return nil
}

// RecordSignal stores one emitted signal.
func (b *BacktestState) RecordSignal(signal types.Signal) error {
	query, args, err := b.sq.
		Insert("signals").
		Columns("signal_id", "node_id", "symbol", "action", "price", "timestamp").
		Values(uuid.New().String(), signal.NodeID, signal.Symbol, string(signal.Action), signal.Price, signal.Time).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build signal insert", err)
	}

	_, err = b.db.Exec(query, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert signal", err)
	}

	return nil
}

// RecordTrade stores one executed fill.
func (b *BacktestState) RecordTrade(trade Trade) error {
	query, args, err := b.sq.
		Insert("trades").
		Columns("trade_id", "symbol", "action", "quantity", "price", "pnl", "timestamp").
		Values(trade.ID, trade.Symbol, string(trade.Action), trade.Qty.InexactFloat64(),
			trade.Price.InexactFloat64(), trade.PnL.InexactFloat64(), trade.Time).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build trade insert", err)
	}

	_, err = b.db.Exec(query, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert trade", err)
	}

	return nil
}

// RecordEquity stores one mark-to-market sample.
func (b *BacktestState) RecordEquity(point EquityPoint) error {
	query, args, err := b.sq.
		Insert("equity").
		Columns("timestamp", "equity", "drawdown").
		Values(point.Time, point.Equity, point.Drawdown).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build equity insert", err)
	}

	_, err = b.db.Exec(query, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert equity point", err)
	}

	return nil
}

// GetAllTrades returns every recorded trade in timestamp order.
func (b *BacktestState) GetAllTrades() ([]Trade, error) {
	query, args, err := b.sq.
		Select("trade_id", "symbol", "action", "quantity", "price", "pnl", "timestamp").
		From("trades").
		OrderBy("timestamp ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build trades query", err)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []Trade

	for rows.Next() {
		var (
			trade               Trade
			action              string
			quantity, price, pnl float64
		)

		if err := rows.Scan(&trade.ID, &trade.Symbol, &action, &quantity, &price, &pnl, &trade.Time); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trade.Action = types.ActionType(action)
		trade.Qty = decimal.NewFromFloat(quantity)
		trade.Price = decimal.NewFromFloat(price)
		trade.PnL = decimal.NewFromFloat(pnl)

		trades = append(trades, trade)
	}

	return trades, rows.Err()
}

// GetEquityCurve returns the recorded equity samples in timestamp order.
func (b *BacktestState) GetEquityCurve() ([]EquityPoint, error) {
	query, args, err := b.sq.
		Select("timestamp", "equity", "drawdown").
		From("equity").
		OrderBy("timestamp ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build equity query", err)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query equity", err)
	}
	defer rows.Close()

	var points []EquityPoint

	for rows.Next() {
		var point EquityPoint

		if err := rows.Scan(&point.Time, &point.Equity, &point.Drawdown); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan equity point", err)
		}

		points = append(points, point)
	}

	return points, rows.Err()
}

// TradeResult aggregates closed-trade outcomes straight from SQL.
type TradeResult struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	RealizedPnL   float64
	MaxDrawdown   float64
}

// GetTradeResult computes the aggregate trade outcome for the run.
func (b *BacktestState) GetTradeResult() (TradeResult, error) {
	var result TradeResult

	err := b.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE pnl > 0),
			COUNT(*) FILTER (WHERE pnl < 0),
			COALESCE(SUM(pnl), 0)
		FROM trades
	`).Scan(&result.TotalTrades, &result.WinningTrades, &result.LosingTrades, &result.RealizedPnL)
	if err != nil {
		return TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate trades", err)
	}

	err = b.db.QueryRow(`SELECT COALESCE(MAX(drawdown), 0) FROM equity`).Scan(&result.MaxDrawdown)
	if err != nil {
		return TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate drawdown", err)
	}

	return result, nil
}

// Write exports the state tables as Parquet files under path.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeGraphWriteFailed, "failed to create results directory", err)
	}

	// Squirrel doesn't support COPY, so use raw SQL.
	for _, table := range []string{"signals", "trades", "equity"} {
		target := filepath.Join(path, table+".parquet")

		_, err := b.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, target))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to export %s", table)
		}
	}

	b.logger.Debug("Exported backtest state", zap.String("path", path))

	return nil
}

// Cleanup drops all state tables.
func (b *BacktestState) Cleanup() error {
	for _, table := range []string{"signals", "trades", "equity"} {
		if _, err := b.db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to drop %s", table)
		}
	}

	return nil
}

// Close releases the underlying database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}
