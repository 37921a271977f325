// Command feed writes a deterministic random-walk tick series to a CSV or
// JSON file suitable for cmd/backtest and cmd/server.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/feed"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"github.com/urfave/cli/v3"
)

func main() {
	// Optional .env for local overrides; missing file is fine.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "feed",
		Usage: "Generate a deterministic random-walk tick series",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Output file (.csv or .json)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "symbol",
				Value: "EURUSD",
				Usage: "Tick symbol",
			},
			&cli.IntFlag{
				Name:  "count",
				Value: 1000,
				Usage: "Number of ticks to generate",
			},
			&cli.IntFlag{
				Name:  "seed",
				Value: 42,
				Usage: "Walk seed; the same seed always produces the same series",
			},
			&cli.FloatFlag{
				Name:  "price",
				Value: 100,
				Usage: "Initial price",
			},
			&cli.FloatFlag{
				Name:  "drift",
				Value: 0,
				Usage: "Per-tick drift factor",
			},
			&cli.FloatFlag{
				Name:  "volatility",
				Value: 0.002,
				Usage: "Per-tick volatility factor",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Minute,
				Usage: "Time between ticks",
			},
			&cli.TimestampFlag{
				Name:  "start",
				Usage: "Timestamp of the first tick (RFC3339), defaults to now",
				Config: cli.TimestampConfig{
					Layouts: []string{time.RFC3339},
				},
			},
		},
		Action: runFeed,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runFeed(ctx context.Context, cmd *cli.Command) error {
	start := cmd.Timestamp("start")
	if start.IsZero() {
		start = time.Now().UTC().Truncate(time.Minute)
	}

	source := feed.NewRandomWalk(feed.RandomWalkConfig{
		Symbol:       cmd.String("symbol"),
		Start:        start,
		Interval:     cmd.Duration("interval"),
		InitialPrice: cmd.Float("price"),
		Drift:        cmd.Float("drift"),
		Volatility:   cmd.Float("volatility"),
		Count:        int(cmd.Int("count")),
		Seed:         cmd.Int("seed"),
	})
	defer source.Close()

	var ticks []types.Tick

	for tick, err := range source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		if err != nil {
			return err
		}

		ticks = append(ticks, tick)
	}

	output := cmd.String("output")

	var err error

	switch strings.ToLower(filepath.Ext(output)) {
	case ".csv":
		err = writeCSV(output, ticks)
	case ".json":
		err = writeJSON(output, ticks)
	default:
		return errors.Newf(errors.ErrCodeBacktestConfigError, "unsupported output format %q, use .csv or .json", filepath.Ext(output))
	}

	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d ticks to %s\n", len(ticks), output)

	return nil
}

func writeCSV(path string, ticks []types.Tick) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"time", "symbol", "price", "volume"}); err != nil {
		return err
	}

	for _, tick := range ticks {
		volume := ""
		if tick.Volume.IsSome() {
			volume = strconv.FormatFloat(tick.Volume.Unwrap(), 'f', -1, 64)
		}

		record := []string{
			tick.Time.UTC().Format(time.RFC3339),
			tick.Symbol,
			strconv.FormatFloat(tick.Price, 'f', -1, 64),
			volume,
		}

		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func writeJSON(path string, ticks []types.Tick) error {
	data, err := json.MarshalIndent(ticks, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
