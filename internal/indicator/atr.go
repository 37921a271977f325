package indicator

import (
	"math"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// ATR is the average true range with Wilder smoothing. Ticks carry a single
// price, so the true range degenerates to the absolute tick-to-tick change.
type ATR struct {
	period    int
	havePrev  bool
	prev      float64
	ranges    int
	sum       float64
	value     float64
	smoothing bool
}

// NewATR creates a new ATR indicator with default configuration.
func NewATR() *ATR {
	return &ATR{period: 14}
}

// Name returns the name of the indicator.
func (a *ATR) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Config configures the ATR indicator. Expected parameters: period.
func (a *ATR) Config(params map[string]float64) error {
	period := int(params["period"])
	if period <= 0 {
		return errors.Newf(errors.ErrCodeEngineConfigError, "period must be a positive integer, got %d", period)
	}

	a.period = period

	return nil
}

// Step consumes the next source value.
func (a *ATR) Step(source float64) map[string]types.Value {
	if !a.havePrev {
		a.havePrev = true
		a.prev = source

		return invalidOutputs("Value")
	}

	trueRange := math.Abs(source - a.prev)
	a.prev = source

	if !a.smoothing {
		a.sum += trueRange
		a.ranges++

		if a.ranges < a.period {
			return invalidOutputs("Value")
		}

		a.value = a.sum / float64(a.period)
		a.smoothing = true
	} else {
		a.value = (a.value*float64(a.period-1) + trueRange) / float64(a.period)
	}

	return map[string]types.Value{
		"Value": types.NumberValue(a.value),
	}
}

// Reset discards all rolling state.
func (a *ATR) Reset() {
	a.havePrev = false
	a.prev = 0
	a.ranges = 0
	a.sum = 0
	a.value = 0
	a.smoothing = false
}
