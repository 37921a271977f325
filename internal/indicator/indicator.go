package indicator

import (
	"github.com/strategraph-lab/strategraph/internal/types"
)

// Indicator is an incremental technical indicator. One instance belongs to one
// graph node: the engine feeds it ticks in timestamp order exactly once, and
// the instance owns its rolling-window state for the lifetime of a run.
//
// Step returns the indicator's named outputs for the latest value. Outputs are
// invalid (types.Value.Valid == false) until the rolling window has filled;
// invalid values never satisfy downstream conditions.
type Indicator interface {
	// Name returns the indicator's registered name.
	Name() types.IndicatorType
	// Config configures the indicator from numeric parameters.
	Config(params map[string]float64) error
	// Step consumes the next source value and returns outputs keyed by port name.
	Step(source float64) map[string]types.Value
	// Reset discards all rolling state, returning the indicator to cold start.
	Reset()
}

func invalidOutputs(ports ...string) map[string]types.Value {
	out := make(map[string]types.Value, len(ports))
	for _, p := range ports {
		out[p] = types.InvalidValue()
	}

	return out
}

func mean(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}

	return sum / float64(len(window))
}
