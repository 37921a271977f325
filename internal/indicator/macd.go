package indicator

import (
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// MACD publishes the MACD line (fast EMA minus slow EMA), the signal line
// (EMA of the MACD line), and the histogram (their difference).
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a new MACD indicator with default configuration.
func NewMACD() *MACD {
	m := &MACD{
		fast:   NewEMA(),
		slow:   NewEMA(),
		signal: NewEMA(),
	}
	m.fast.period = 12
	m.slow.period = 26
	m.signal.period = 9

	return m
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the indicator. Expected parameters: fast, slow, signal.
func (m *MACD) Config(params map[string]float64) error {
	fast, slow, signal := int(params["fast"]), int(params["slow"]), int(params["signal"])
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return errors.New(errors.ErrCodeEngineConfigError, "fast, slow and signal periods must be positive integers")
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeEngineConfigError, "fast period %d must be shorter than slow period %d", fast, slow)
	}

	m.fast.period = fast
	m.slow.period = slow
	m.signal.period = signal

	return nil
}

// Step consumes the next source value.
func (m *MACD) Step(source float64) map[string]types.Value {
	fastValue, fastReady := m.fast.step(source)
	slowValue, slowReady := m.slow.step(source)

	if !fastReady || !slowReady {
		return invalidOutputs("MACD", "Signal", "Hist")
	}

	macdLine := fastValue - slowValue

	signalValue, signalReady := m.signal.step(macdLine)
	if !signalReady {
		return invalidOutputs("MACD", "Signal", "Hist")
	}

	return map[string]types.Value{
		"MACD":   types.NumberValue(macdLine),
		"Signal": types.NumberValue(signalValue),
		"Hist":   types.NumberValue(macdLine - signalValue),
	}
}

// Reset discards all rolling state.
func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
}
