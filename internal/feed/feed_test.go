package feed

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, source interface {
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Tick, error) bool)
}, start, end optional.Option[time.Time]) []types.Tick {
	t.Helper()

	var ticks []types.Tick

	for tick, err := range source.ReadAll(start, end) {
		require.NoError(t, err)

		ticks = append(ticks, tick)
	}

	return ticks
}

func TestRandomWalkDeterminism(t *testing.T) {
	config := RandomWalkConfig{
		Symbol:       "EURUSD",
		Start:        time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		Interval:     time.Minute,
		InitialPrice: 100,
		Volatility:   0.01,
		Count:        50,
		Seed:         7,
	}

	first := collect(t, NewRandomWalk(config), optional.None[time.Time](), optional.None[time.Time]())
	second := collect(t, NewRandomWalk(config), optional.None[time.Time](), optional.None[time.Time]())

	require.Len(t, first, 50)
	assert.Equal(t, first, second)

	config.Seed = 8
	other := collect(t, NewRandomWalk(config), optional.None[time.Time](), optional.None[time.Time]())
	assert.NotEqual(t, first, other)
}

func TestRandomWalkCountMatchesReadAll(t *testing.T) {
	config := RandomWalkConfig{
		Start:    time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		Interval: time.Minute,
		Count:    30,
		Seed:     1,
	}

	walk := NewRandomWalk(config)

	start := optional.Some(config.Start.Add(10 * time.Minute))
	count, err := walk.Count(start, optional.None[time.Time]())
	require.NoError(t, err)

	ticks := collect(t, walk, start, optional.None[time.Time]())
	assert.Equal(t, len(ticks), count)
	assert.Equal(t, 20, count)
}

func TestSliceSourceOrdersAndBounds(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	source := NewSliceSource([]types.Tick{
		{Time: base.Add(2 * time.Minute), Symbol: "EURUSD", Price: 3},
		{Time: base, Symbol: "EURUSD", Price: 1},
		{Time: base.Add(time.Minute), Symbol: "EURUSD", Price: 2},
	})

	ticks := collect(t, source, optional.None[time.Time](), optional.None[time.Time]())
	require.Len(t, ticks, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{ticks[0].Price, ticks[1].Price, ticks[2].Price})

	bounded := collect(t, source, optional.Some(base.Add(time.Minute)), optional.Some(base.Add(time.Minute)))
	require.Len(t, bounded, 1)
	assert.Equal(t, 2.0, bounded[0].Price)
}

func TestSliceSourceReadLastTick(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	source := NewSliceSource([]types.Tick{
		{Time: base, Symbol: "EURUSD", Price: 1},
		{Time: base.Add(time.Minute), Symbol: "EURUSD", Price: 2},
		{Time: base.Add(time.Minute), Symbol: "GBPUSD", Price: 9},
	})

	last, err := source.ReadLastTick("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 2.0, last.Price)

	_, err = source.ReadLastTick("USDJPY")
	require.Error(t, err)
}
