package indicator

import (
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// RSI is the Relative Strength Index with Wilder smoothing. The value needs
// period+1 source values before it becomes valid.
type RSI struct {
	period    int
	havePrev  bool
	prev      float64
	changes   int
	sumGain   float64
	sumLoss   float64
	avgGain   float64
	avgLoss   float64
	smoothing bool
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() *RSI {
	return &RSI{period: 14}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period.
func (r *RSI) Config(params map[string]float64) error {
	period := int(params["period"])
	if period <= 0 {
		return errors.Newf(errors.ErrCodeEngineConfigError, "period must be a positive integer, got %d", period)
	}

	r.period = period

	return nil
}

// Step consumes the next source value.
func (r *RSI) Step(source float64) map[string]types.Value {
	if !r.havePrev {
		r.havePrev = true
		r.prev = source

		return invalidOutputs("Value")
	}

	change := source - r.prev
	r.prev = source

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if !r.smoothing {
		r.sumGain += gain
		r.sumLoss += loss
		r.changes++

		if r.changes < r.period {
			return invalidOutputs("Value")
		}

		r.avgGain = r.sumGain / float64(r.period)
		r.avgLoss = r.sumLoss / float64(r.period)
		r.smoothing = true
	} else {
		r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
		r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
	}

	return map[string]types.Value{
		"Value": types.NumberValue(r.value()),
	}
}

func (r *RSI) value() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}

		return 100
	}

	rs := r.avgGain / r.avgLoss

	return 100 - 100/(1+rs)
}

// Reset discards all rolling state.
func (r *RSI) Reset() {
	r.havePrev = false
	r.prev = 0
	r.changes = 0
	r.sumGain = 0
	r.sumLoss = 0
	r.avgGain = 0
	r.avgLoss = 0
	r.smoothing = false
}
