package types

import "time"

// ActionType is the trading instruction carried by a signal.
type ActionType string

const (
	// ActionTypeBuy opens or adds to a long position.
	ActionTypeBuy ActionType = "buy"
	// ActionTypeSell sells out of a long position.
	ActionTypeSell ActionType = "sell"
	// ActionTypeClose flattens any open position.
	ActionTypeClose ActionType = "close"
)

// Signal is an emitted trading instruction produced by an action node during
// evaluation.
type Signal struct {
	// Time is the timestamp of the tick that produced the signal.
	Time time.Time `json:"time"`
	// Symbol is the tick's symbol.
	Symbol string `json:"symbol"`
	// NodeID is the action node that fired.
	NodeID string `json:"nodeId"`
	// Action is the trading instruction.
	Action ActionType `json:"action"`
	// Price is the tick price at emission time.
	Price float64 `json:"price"`
	// Config is the firing node's resolved configuration.
	Config map[string]ConfigValue `json:"config,omitempty"`
}
