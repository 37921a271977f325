package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/strategraph-lab/strategraph/internal/backtest"
	"github.com/strategraph-lab/strategraph/internal/engine"
	engine_v1 "github.com/strategraph-lab/strategraph/internal/engine/engine_v1"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/feed"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/urfave/cli/v3"
)

// backtestAction wires the tick source, the evaluation engine and the runner,
// then writes the results folder.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	graphPath := cmd.String("graph")
	dataPath := cmd.String("data")
	configPath := cmd.String("config")
	output := cmd.String("output")

	appLogger, err := logger.NewLogger()
	if err != nil {
		return err
	}

	engineConfig := ""

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read engine config: %w", err)
		}

		engineConfig = string(content)
	}

	eng := engine_v1.NewEvalEngineV1()
	if err := eng.Initialize(engineConfig); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	if err := eng.LoadGraphFromFile(graphPath); err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}

	source, err := buildTickSource(cmd, dataPath, appLogger)
	if err != nil {
		return err
	}
	defer source.Close()

	runner, err := backtest.NewRunner(eng, source, appLogger, backtest.RunnerConfig{
		InitialCapital: cmd.Float("capital"),
		DefaultSize:    cmd.Float("size"),
	})
	if err != nil {
		return err
	}
	defer runner.Close()

	var bar *progressbar.ProgressBar

	var onTick engine.OnTickCallback = func(current int, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe("Evaluating " + graphPath)
		}

		_ = bar.Add(1)
	}

	result, err := runner.Run(ctx, optional.Some(onTick))
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if err := runner.WriteResults(output, result); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	fmt.Printf("\nTicks: %d  Signals: %d  Trades: %d  Faults: %d\n",
		result.Run.Ticks, result.Stats.SignalCount, result.Stats.TotalTrades, result.Stats.FaultCount)
	fmt.Printf("Final equity: %.2f (%.2f%%)  Max drawdown: %.2f%%\n",
		result.Stats.FinalEquity, result.Stats.TotalReturnPct, result.Stats.MaxDrawdownPct)
	fmt.Printf("Results written to %s\n", output)

	return nil
}

// buildTickSource picks CSV (DuckDB), JSON (slice) or the seeded random walk
// depending on the data flag.
func buildTickSource(cmd *cli.Command, dataPath string, log *logger.Logger) (datasource.TickSource, error) {
	switch {
	case strings.HasSuffix(dataPath, ".csv"):
		source, err := datasource.NewDuckDBTickSource(":memory:", log)
		if err != nil {
			return nil, err
		}

		if err := source.Initialize(dataPath); err != nil {
			return nil, err
		}

		return source, nil
	case strings.HasSuffix(dataPath, ".json"):
		source := feed.NewSliceSource(nil)
		if err := source.Initialize(dataPath); err != nil {
			return nil, err
		}

		return source, nil
	case dataPath == "":
		return feed.NewRandomWalk(feed.RandomWalkConfig{
			Symbol:       cmd.String("symbol"),
			Start:        time.Now().Add(-time.Duration(cmd.Int("count")) * time.Minute).Truncate(time.Minute),
			Interval:     time.Minute,
			InitialPrice: cmd.Float("price"),
			Volatility:   cmd.Float("volatility"),
			Count:        int(cmd.Int("count")),
			Seed:         cmd.Int("seed"),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported data file: %s (expected .csv or .json)", dataPath)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Evaluate a strategy graph against historical or generated ticks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "graph",
				Aliases:  []string{"g"},
				Usage:    "Path to the serialized strategy graph (JSON)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Tick data file (.csv via DuckDB or .json); omit for a generated random walk",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Engine config YAML path",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Results output folder",
				Value:   "results",
			},
			&cli.FloatFlag{
				Name:  "capital",
				Usage: "Initial capital",
				Value: 10000,
			},
			&cli.FloatFlag{
				Name:  "size",
				Usage: "Default fill size when a signal carries none",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "symbol",
				Usage: "Symbol for the generated walk",
				Value: "EURUSD",
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Tick count for the generated walk",
				Value: 1000,
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Seed for the generated walk",
				Value: 42,
			},
			&cli.FloatFlag{
				Name:  "price",
				Usage: "Initial price for the generated walk",
				Value: 100,
			},
			&cli.FloatFlag{
				Name:  "volatility",
				Usage: "Per-tick volatility for the generated walk",
				Value: 0.002,
			},
		},
		Action: backtestAction,
	}
}

func main() {
	// Optional .env for local overrides; missing file is fine.
	_ = godotenv.Load()

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
