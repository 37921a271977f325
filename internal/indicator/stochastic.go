package indicator

import (
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// Stochastic publishes the smoothed %K and %D oscillator lines over a rolling
// price window.
type Stochastic struct {
	kPeriod int
	dPeriod int
	smooth  int

	prices  []float64
	rawK    []float64
	smoothK []float64
}

// NewStochastic creates a new Stochastic indicator with default configuration.
func NewStochastic() *Stochastic {
	return &Stochastic{kPeriod: 14, dPeriod: 3, smooth: 3}
}

// Name returns the name of the indicator.
func (s *Stochastic) Name() types.IndicatorType {
	return types.IndicatorTypeStochastic
}

// Config configures the indicator. Expected parameters: k, d, smooth.
func (s *Stochastic) Config(params map[string]float64) error {
	k, d, smooth := int(params["k"]), int(params["d"]), int(params["smooth"])
	if k <= 0 || d <= 0 || smooth <= 0 {
		return errors.New(errors.ErrCodeEngineConfigError, "k, d and smooth periods must be positive integers")
	}

	s.kPeriod = k
	s.dPeriod = d
	s.smooth = smooth

	return nil
}

// Step consumes the next source value.
func (s *Stochastic) Step(source float64) map[string]types.Value {
	s.prices = append(s.prices, source)
	if len(s.prices) > s.kPeriod {
		s.prices = s.prices[1:]
	}

	if len(s.prices) < s.kPeriod {
		return invalidOutputs("K", "D")
	}

	low, high := s.prices[0], s.prices[0]
	for _, p := range s.prices {
		if p < low {
			low = p
		}

		if p > high {
			high = p
		}
	}

	raw := 50.0
	if high != low {
		raw = (source - low) / (high - low) * 100
	}

	s.rawK = append(s.rawK, raw)
	if len(s.rawK) > s.smooth {
		s.rawK = s.rawK[1:]
	}

	if len(s.rawK) < s.smooth {
		return invalidOutputs("K", "D")
	}

	k := mean(s.rawK)

	s.smoothK = append(s.smoothK, k)
	if len(s.smoothK) > s.dPeriod {
		s.smoothK = s.smoothK[1:]
	}

	if len(s.smoothK) < s.dPeriod {
		return invalidOutputs("K", "D")
	}

	return map[string]types.Value{
		"K": types.NumberValue(k),
		"D": types.NumberValue(mean(s.smoothK)),
	}
}

// Reset discards all rolling state.
func (s *Stochastic) Reset() {
	s.prices = nil
	s.rawK = nil
	s.smoothK = nil
}
