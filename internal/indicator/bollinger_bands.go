package indicator

import (
	"math"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// BollingerBands publishes the middle SMA band plus upper/lower bands at a
// configurable number of standard deviations.
type BollingerBands struct {
	period int
	stdDev float64
	window []float64
}

// NewBollingerBands creates a new Bollinger Bands indicator with default
// configuration.
func NewBollingerBands() *BollingerBands {
	return &BollingerBands{period: 20, stdDev: 2}
}

// Name returns the name of the indicator.
func (b *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config configures the indicator. Expected parameters: period, stdDev.
func (b *BollingerBands) Config(params map[string]float64) error {
	period := int(params["period"])
	if period <= 0 {
		return errors.Newf(errors.ErrCodeEngineConfigError, "period must be a positive integer, got %d", period)
	}

	stdDev := params["stdDev"]
	if stdDev <= 0 {
		return errors.Newf(errors.ErrCodeEngineConfigError, "stdDev must be positive, got %v", stdDev)
	}

	b.period = period
	b.stdDev = stdDev

	return nil
}

// Step consumes the next source value.
func (b *BollingerBands) Step(source float64) map[string]types.Value {
	b.window = append(b.window, source)
	if len(b.window) > b.period {
		b.window = b.window[1:]
	}

	if len(b.window) < b.period {
		return invalidOutputs("Upper", "Middle", "Lower")
	}

	middle := mean(b.window)

	variance := 0.0
	for _, v := range b.window {
		variance += (v - middle) * (v - middle)
	}

	sigma := math.Sqrt(variance / float64(b.period))

	return map[string]types.Value{
		"Upper":  types.NumberValue(middle + b.stdDev*sigma),
		"Middle": types.NumberValue(middle),
		"Lower":  types.NumberValue(middle - b.stdDev*sigma),
	}
}

// Reset discards all rolling state.
func (b *BollingerBands) Reset() {
	b.window = nil
}
