package indicator

import (
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// EMA is the exponential moving average, seeded with the SMA of the first
// period values.
type EMA struct {
	period int
	seed   []float64
	value  float64
	ready  bool
}

// NewEMA creates a new EMA indicator with default configuration.
func NewEMA() *EMA {
	return &EMA{period: 20}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config configures the EMA indicator. Expected parameters: period.
func (e *EMA) Config(params map[string]float64) error {
	period := int(params["period"])
	if period <= 0 {
		return errors.Newf(errors.ErrCodeEngineConfigError, "period must be a positive integer, got %d", period)
	}

	e.period = period

	return nil
}

// Step consumes the next source value.
func (e *EMA) Step(source float64) map[string]types.Value {
	next, ok := e.step(source)
	if !ok {
		return invalidOutputs("Value")
	}

	return map[string]types.Value{
		"Value": types.NumberValue(next),
	}
}

// step advances the average and reports whether it is seeded yet. Shared with
// MACD, which runs three of these.
func (e *EMA) step(source float64) (float64, bool) {
	if !e.ready {
		e.seed = append(e.seed, source)
		if len(e.seed) < e.period {
			return 0, false
		}

		e.value = mean(e.seed)
		e.seed = nil
		e.ready = true

		return e.value, true
	}

	k := 2.0 / (float64(e.period) + 1.0)
	e.value += (source - e.value) * k

	return e.value, true
}

// Reset discards all rolling state.
func (e *EMA) Reset() {
	e.seed = nil
	e.value = 0
	e.ready = false
}
