package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
)

// Runs the command with the action swapped out so flag parsing is exercised
// without touching the engine.
func parseFlags(t *testing.T, args []string) *cli.Command {
	t.Helper()

	var parsed *cli.Command
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		parsed = c
		return nil
	}

	require.NoError(t, cmd.Run(context.Background(), args))
	require.NotNil(t, parsed)
	return parsed
}

func TestFloatFlagsParse(t *testing.T) {
	cmd := parseFlags(t, []string{
		"backtest",
		"--graph", "strategy.json",
		"--capital", "2500.5",
		"--size", "0.25",
		"--price", "1.0876",
		"--volatility", "0.0005",
	})

	require.Equal(t, 2500.5, cmd.Float("capital"))
	require.Equal(t, 0.25, cmd.Float("size"))
	require.Equal(t, 1.0876, cmd.Float("price"))
	require.Equal(t, 0.0005, cmd.Float("volatility"))
}

func TestFlagDefaults(t *testing.T) {
	cmd := parseFlags(t, []string{"backtest", "--graph", "strategy.json"})

	require.Equal(t, 10000.0, cmd.Float("capital"))
	require.Equal(t, 1.0, cmd.Float("size"))
	require.Equal(t, 100.0, cmd.Float("price"))
	require.Equal(t, 0.002, cmd.Float("volatility"))
	require.Equal(t, int64(1000), cmd.Int("count"))
	require.Equal(t, "results", cmd.String("output"))
}
