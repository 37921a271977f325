package indicator

import (
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// SMA is the simple moving average over a rolling window.
type SMA struct {
	period int
	window []float64
}

// NewSMA creates a new SMA indicator with default configuration.
func NewSMA() *SMA {
	return &SMA{period: 20}
}

// Name returns the name of the indicator.
func (s *SMA) Name() types.IndicatorType {
	return types.IndicatorTypeSMA
}

// Config configures the SMA indicator. Expected parameters: period.
func (s *SMA) Config(params map[string]float64) error {
	period := int(params["period"])
	if period <= 0 {
		return errors.Newf(errors.ErrCodeEngineConfigError, "period must be a positive integer, got %d", period)
	}

	s.period = period

	return nil
}

// Step consumes the next source value.
func (s *SMA) Step(source float64) map[string]types.Value {
	s.window = append(s.window, source)
	if len(s.window) > s.period {
		s.window = s.window[1:]
	}

	if len(s.window) < s.period {
		return invalidOutputs("Value")
	}

	return map[string]types.Value{
		"Value": types.NumberValue(mean(s.window)),
	}
}

// Reset discards all rolling state.
func (s *SMA) Reset() {
	s.window = nil
}
