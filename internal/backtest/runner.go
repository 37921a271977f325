package backtest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/strategraph-lab/strategraph/internal/engine"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RunnerConfig parameterizes one backtest.
type RunnerConfig struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// DefaultSize is the fill quantity when a signal's node config carries
	// no size parameter.
	DefaultSize float64 `yaml:"default_size" json:"default_size"`
}

// Stats is the summary written next to the trade log and equity chart.
type Stats struct {
	InitialCapital float64 `yaml:"initial_capital"`
	FinalEquity    float64 `yaml:"final_equity"`
	TotalReturnPct float64 `yaml:"total_return_pct"`
	RealizedPnL    float64 `yaml:"realized_pnl"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	TotalTrades    int     `yaml:"total_trades"`
	WinningTrades  int     `yaml:"winning_trades"`
	LosingTrades   int     `yaml:"losing_trades"`
	WinRate        float64 `yaml:"win_rate"`
	SignalCount    int     `yaml:"signal_count"`
	FaultCount     int     `yaml:"fault_count"`
	Cancelled      bool    `yaml:"cancelled"`
}

// Result bundles the engine's run output with the performance trace computed
// from it.
type Result struct {
	Run    *types.RunResult
	Stats  Stats
	Trades []Trade
	Equity []EquityPoint
}

// Runner evaluates a graph against a tick stream and turns the emitted signal
// sequence into an equity curve, drawdown series and trade log. The position
// model is long-only net position per symbol: buy opens or adds, sell reduces,
// close flattens.
type Runner struct {
	engine engine.Engine
	source datasource.TickSource
	state  *BacktestState
	log    *logger.Logger
	config RunnerConfig
}

// NewRunner creates a backtest runner over an initialized engine and tick
// source.
func NewRunner(eng engine.Engine, source datasource.TickSource, log *logger.Logger, config RunnerConfig) (*Runner, error) {
	if config.InitialCapital <= 0 {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "initial capital must be positive")
	}

	if config.DefaultSize <= 0 {
		config.DefaultSize = 1
	}

	state, err := NewBacktestState(log)
	if err != nil {
		return nil, err
	}

	if err := state.Initialize(); err != nil {
		return nil, err
	}

	return &Runner{
		engine: eng,
		source: source,
		state:  state,
		log:    log,
		config: config,
	}, nil
}

// State exposes the run's DuckDB-backed state store.
func (r *Runner) State() *BacktestState {
	return r.state
}

// Run evaluates the graph and replays the resulting signals against the tick
// stream to mark the account to market on every tick.
func (r *Runner) Run(ctx context.Context, onTick optional.Option[engine.OnTickCallback]) (*Result, error) {
	if err := r.engine.SetDataSource(r.source); err != nil {
		return nil, err
	}

	runResult, err := r.engine.Run(ctx, onTick)
	if err != nil {
		return nil, err
	}

	for _, signal := range runResult.Signals {
		if err := r.state.RecordSignal(signal); err != nil {
			return nil, err
		}
	}

	result, err := r.replay(runResult)
	if err != nil {
		return nil, err
	}

	r.log.Info("Backtest finished",
		zap.Int("ticks", runResult.Ticks),
		zap.Int("signals", len(runResult.Signals)),
		zap.Int("trades", result.Stats.TotalTrades),
		zap.Float64("final_equity", result.Stats.FinalEquity),
	)

	return result, nil
}

// replay walks the tick stream a second time over the engine's configured
// window, executing each signal at its tick's price and sampling equity and
// drawdown per tick.
func (r *Runner) replay(runResult *types.RunResult) (*Result, error) {
	signalsByTime := make(map[int64][]types.Signal, len(runResult.Signals))
	for _, signal := range runResult.Signals {
		key := signal.Time.UnixNano()
		signalsByTime[key] = append(signalsByTime[key], signal)
	}

	cash := decimal.NewFromFloat(r.config.InitialCapital)
	qty := decimal.Zero
	avgEntry := decimal.Zero
	peak := r.config.InitialCapital

	var trades []Trade

	var equity []EquityPoint

	start, end := r.engine.TimeRange()

	for tick, err := range r.source.ReadAll(start, end) {
		if err != nil {
			return nil, err
		}

		price := decimal.NewFromFloat(tick.Price)

		for _, signal := range signalsByTime[tick.Time.UnixNano()] {
			trade, executed := executeSignal(signal, price, r.config.DefaultSize, &cash, &qty, &avgEntry)
			if !executed {
				continue
			}

			trades = append(trades, trade)

			if err := r.state.RecordTrade(trade); err != nil {
				return nil, err
			}
		}

		equityNow, _ := cash.Add(qty.Mul(price)).Float64()
		if equityNow > peak {
			peak = equityNow
		}

		drawdown := 0.0
		if peak > 0 {
			drawdown = (peak - equityNow) / peak * 100
		}

		point := EquityPoint{Time: tick.Time, Equity: equityNow, Drawdown: drawdown}
		equity = append(equity, point)

		if err := r.state.RecordEquity(point); err != nil {
			return nil, err
		}
	}

	tradeResult, err := r.state.GetTradeResult()
	if err != nil {
		return nil, err
	}

	stats := Stats{
		InitialCapital: r.config.InitialCapital,
		FinalEquity:    r.config.InitialCapital,
		RealizedPnL:    tradeResult.RealizedPnL,
		MaxDrawdownPct: tradeResult.MaxDrawdown,
		TotalTrades:    tradeResult.TotalTrades,
		WinningTrades:  tradeResult.WinningTrades,
		LosingTrades:   tradeResult.LosingTrades,
		SignalCount:    len(runResult.Signals),
		FaultCount:     len(runResult.Faults),
		Cancelled:      runResult.Cancelled,
	}

	if len(equity) > 0 {
		stats.FinalEquity = equity[len(equity)-1].Equity
		stats.TotalReturnPct = (stats.FinalEquity - stats.InitialCapital) / stats.InitialCapital * 100
	}

	closed := stats.WinningTrades + stats.LosingTrades
	if closed > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(closed) * 100
	}

	return &Result{
		Run:    runResult,
		Stats:  stats,
		Trades: trades,
		Equity: equity,
	}, nil
}

// executeSignal applies one signal to the account. Sell and close on a flat
// book are ignored rather than opening shorts.
func executeSignal(signal types.Signal, price decimal.Decimal, defaultSize float64, cash, qty, avgEntry *decimal.Decimal) (Trade, bool) {
	size := decimal.NewFromFloat(defaultSize)
	if cfg, ok := signal.Config["size"]; ok && cfg.Num > 0 {
		size = decimal.NewFromFloat(cfg.Num)
	}

	trade := Trade{
		ID:     uuid.New().String(),
		Time:   signal.Time,
		Symbol: signal.Symbol,
		Action: signal.Action,
		Price:  price,
		PnL:    decimal.Zero,
	}

	switch signal.Action {
	case types.ActionTypeBuy:
		cost := size.Mul(price)
		held := qty.Mul(*avgEntry)
		*qty = qty.Add(size)
		*avgEntry = held.Add(cost).Div(*qty)
		*cash = cash.Sub(cost)
		trade.Qty = size

		return trade, true
	case types.ActionTypeSell:
		if qty.IsZero() {
			return Trade{}, false
		}

		fill := decimal.Min(size, *qty)
		trade.Qty = fill
		trade.PnL = price.Sub(*avgEntry).Mul(fill)
		*cash = cash.Add(fill.Mul(price))
		*qty = qty.Sub(fill)

		if qty.IsZero() {
			*avgEntry = decimal.Zero
		}

		return trade, true
	case types.ActionTypeClose:
		if qty.IsZero() {
			return Trade{}, false
		}

		trade.Qty = *qty
		trade.PnL = price.Sub(*avgEntry).Mul(*qty)
		*cash = cash.Add(qty.Mul(price))
		*qty = decimal.Zero
		*avgEntry = decimal.Zero

		return trade, true
	}

	return Trade{}, false
}

// WriteResults writes stats.yaml, the equity chart and the exported state
// tables into folder.
func (r *Runner) WriteResults(folder string, result *Result) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeGraphWriteFailed, "failed to create results folder", err)
	}

	data, err := yaml.Marshal(result.Stats)
	if err != nil {
		return errors.Wrap(errors.ErrCodeGraphWriteFailed, "failed to marshal stats", err)
	}

	if err := os.WriteFile(filepath.Join(folder, "stats.yaml"), data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeGraphWriteFailed, "failed to write stats", err)
	}

	if err := WriteEquityChart(filepath.Join(folder, "equity.html"), result.Equity); err != nil {
		return err
	}

	return r.state.Write(folder)
}

// Close releases the runner's state store.
func (r *Runner) Close() error {
	return r.state.Close()
}
