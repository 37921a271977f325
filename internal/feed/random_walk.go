// Package feed provides in-process tick sources: a deterministic random-walk
// generator for demos and tests, and a slice-backed source for inline tick
// data. Both satisfy the datasource.TickSource contract, so the engine pulls
// ticks from them exactly as it would from a CSV file.
package feed

import (
	"math/rand"
	"time"

	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// RandomWalkConfig parameterizes the generated walk. The same seed always
// produces the same tick sequence.
type RandomWalkConfig struct {
	Symbol       string        `yaml:"symbol" json:"symbol"`
	Start        time.Time     `yaml:"start" json:"start"`
	Interval     time.Duration `yaml:"interval" json:"interval"`
	InitialPrice float64       `yaml:"initial_price" json:"initial_price"`
	Drift        float64       `yaml:"drift" json:"drift"`
	Volatility   float64       `yaml:"volatility" json:"volatility"`
	Count        int           `yaml:"count" json:"count"`
	Seed         int64         `yaml:"seed" json:"seed"`
}

// RandomWalk is a lazy tick generator: ticks are produced one at a time as the
// caller pulls them, and stopping consumption stops the walk.
type RandomWalk struct {
	config RandomWalkConfig
}

// NewRandomWalk creates a random-walk tick source.
func NewRandomWalk(config RandomWalkConfig) datasource.TickSource {
	if config.Symbol == "" {
		config.Symbol = "EURUSD"
	}

	if config.Interval <= 0 {
		config.Interval = time.Minute
	}

	if config.InitialPrice <= 0 {
		config.InitialPrice = 100
	}

	if config.Volatility == 0 {
		config.Volatility = 0.002
	}

	return &RandomWalk{config: config}
}

// Initialize implements datasource.TickSource. The walk is configured at
// construction time, so there is nothing to load.
func (w *RandomWalk) Initialize(path string) error {
	return nil
}

// ReadAll implements datasource.TickSource.
func (w *RandomWalk) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Tick, error) bool) {
	return func(yield func(types.Tick, error) bool) {
		rng := rand.New(rand.NewSource(w.config.Seed))
		price := w.config.InitialPrice

		for i := 0; i < w.config.Count; i++ {
			timestamp := w.config.Start.Add(time.Duration(i) * w.config.Interval)
			price += price * (w.config.Drift + w.config.Volatility*(rng.Float64()*2-1))

			volume := optional.Some(float64(int(rng.Float64()*10000) + 1))

			if start.IsSome() && timestamp.Before(start.Unwrap()) {
				continue
			}

			if end.IsSome() && timestamp.After(end.Unwrap()) {
				return
			}

			tick := types.Tick{
				Time:   timestamp,
				Symbol: w.config.Symbol,
				Price:  price,
				Volume: volume,
			}

			if !yield(tick, nil) {
				return
			}
		}
	}
}

// ReadLastTick implements datasource.TickSource.
func (w *RandomWalk) ReadLastTick(symbol string) (types.Tick, error) {
	var last types.Tick

	found := false

	for tick, err := range w.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		if err != nil {
			return types.Tick{}, err
		}

		if tick.Symbol == symbol {
			last = tick
			found = true
		}
	}

	if !found {
		return types.Tick{}, errors.Newf(errors.ErrCodeNoDataFound, "no ticks found for symbol %s", symbol)
	}

	return last, nil
}

// ExecuteSQL implements datasource.TickSource.
func (w *RandomWalk) ExecuteSQL(query string, params ...interface{}) ([]datasource.SQLResult, error) {
	return nil, errors.New(errors.ErrCodeQueryFailed, "random walk feed does not support SQL")
}

// Count implements datasource.TickSource.
func (w *RandomWalk) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, err := range w.ReadAll(start, end) {
		if err != nil {
			return 0, err
		}

		count++
	}

	return count, nil
}

// Close implements datasource.TickSource.
func (w *RandomWalk) Close() error {
	return nil
}
