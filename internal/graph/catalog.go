package graph

import (
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// Template kinds registered in the built-in catalog.
const (
	KindTimeTrigger   = "time_trigger"
	KindPriceUpdate   = "price_update"
	KindConstant      = "constant"
	KindRSI           = "rsi"
	KindSMA           = "sma"
	KindEMA           = "ema"
	KindBollinger     = "bollinger_bands"
	KindMACD          = "macd"
	KindATR           = "atr"
	KindStochastic    = "stochastic"
	KindCompareGT     = "compare_gt"
	KindCompareLT     = "compare_lt"
	KindCrossOver     = "cross_over"
	KindANDGate       = "and_gate"
	KindORGate        = "or_gate"
	KindBuyMarket     = "buy_market"
	KindSellMarket    = "sell_market"
	KindClosePosition = "close_position"
	KindCustomScript  = "custom_script"
)

// DefaultCustomScript is the starter script for a new custom node.
const DefaultCustomScript = `{ Out1 = inputs.In1 > inputs.In2 }`

// ConfigParam declares one configurable parameter of a template, with its
// typed default.
type ConfigParam struct {
	Name    string            `json:"name"`
	Kind    types.ConfigKind  `json:"kind"`
	Default types.ConfigValue `json:"default"`
}

// Template describes one node library entry the user can instantiate.
type Template struct {
	Kind     string         `json:"kind"`
	Type     types.NodeType `json:"type"`
	Label    string         `json:"label"`
	Category string         `json:"category"`
	Inputs   []string       `json:"inputs"`
	Outputs  []string       `json:"outputs"`
	Params   []ConfigParam  `json:"params"`
}

// Definition is the catalog's answer for one template kind: the port lists,
// the declared configurable parameters, and a fresh copy of the defaults.
type Definition struct {
	Inputs        []string
	Outputs       []string
	Params        []ConfigParam
	DefaultConfig map[string]types.ConfigValue
}

// Catalog is the immutable lookup table of node templates. The custom type is
// special: its port list is not fixed here but supplied at node-creation time;
// the catalog only supplies the script contract.
type Catalog struct {
	templates []Template
	byKind    map[string]int
}

func numParam(name string, def float64) ConfigParam {
	return ConfigParam{Name: name, Kind: types.ConfigKindNumber, Default: types.NumberConfig(def)}
}

func strParam(name, def string) ConfigParam {
	return ConfigParam{Name: name, Kind: types.ConfigKindString, Default: types.StringConfig(def)}
}

// NewCatalog builds the built-in node library.
func NewCatalog() *Catalog {
	templates := []Template{
		{Kind: KindTimeTrigger, Type: types.NodeTypeTrigger, Label: "Time Trigger", Category: "Triggers",
			Outputs: []string{"OnTick"}, Params: []ConfigParam{strParam("interval", "1h")}},
		{Kind: KindPriceUpdate, Type: types.NodeTypeTrigger, Label: "Price Update", Category: "Triggers",
			Outputs: []string{"OnPrice"}, Params: []ConfigParam{strParam("symbol", "EURUSD")}},
		{Kind: KindConstant, Type: types.NodeTypeTrigger, Label: "Constant", Category: "Triggers",
			Outputs: []string{"Value"}, Params: []ConfigParam{numParam("value", 0)}},

		{Kind: KindRSI, Type: types.NodeTypeIndicator, Label: "RSI", Category: "Indicators",
			Inputs: []string{"Source"}, Outputs: []string{"Value"}, Params: []ConfigParam{numParam("period", 14)}},
		{Kind: KindSMA, Type: types.NodeTypeIndicator, Label: "SMA", Category: "Indicators",
			Inputs: []string{"Source"}, Outputs: []string{"Value"}, Params: []ConfigParam{numParam("period", 20)}},
		{Kind: KindEMA, Type: types.NodeTypeIndicator, Label: "EMA", Category: "Indicators",
			Inputs: []string{"Source"}, Outputs: []string{"Value"}, Params: []ConfigParam{numParam("period", 20)}},
		{Kind: KindBollinger, Type: types.NodeTypeIndicator, Label: "Bollinger Bands", Category: "Indicators",
			Inputs: []string{"Source"}, Outputs: []string{"Upper", "Middle", "Lower"},
			Params: []ConfigParam{numParam("period", 20), numParam("stdDev", 2)}},
		{Kind: KindMACD, Type: types.NodeTypeIndicator, Label: "MACD", Category: "Indicators",
			Inputs: []string{"Source"}, Outputs: []string{"MACD", "Signal", "Hist"},
			Params: []ConfigParam{numParam("fast", 12), numParam("slow", 26), numParam("signal", 9)}},
		{Kind: KindATR, Type: types.NodeTypeIndicator, Label: "ATR", Category: "Indicators",
			Outputs: []string{"Value"}, Params: []ConfigParam{numParam("period", 14)}},
		{Kind: KindStochastic, Type: types.NodeTypeIndicator, Label: "Stochastic", Category: "Indicators",
			Outputs: []string{"K", "D"},
			Params:  []ConfigParam{numParam("k", 14), numParam("d", 3), numParam("smooth", 3)}},

		{Kind: KindCompareGT, Type: types.NodeTypeCondition, Label: "Compare (>)", Category: "Logic",
			Inputs: []string{"A", "B"}, Outputs: []string{"True", "False"}},
		{Kind: KindCompareLT, Type: types.NodeTypeCondition, Label: "Compare (<)", Category: "Logic",
			Inputs: []string{"A", "B"}, Outputs: []string{"True", "False"}},
		{Kind: KindCrossOver, Type: types.NodeTypeCondition, Label: "Cross Over", Category: "Logic",
			Inputs: []string{"A", "B"}, Outputs: []string{"True", "False"}},
		{Kind: KindANDGate, Type: types.NodeTypeCondition, Label: "AND Gate", Category: "Logic",
			Inputs: []string{"In1", "In2"}, Outputs: []string{"Out"}},
		{Kind: KindORGate, Type: types.NodeTypeCondition, Label: "OR Gate", Category: "Logic",
			Inputs: []string{"In1", "In2"}, Outputs: []string{"Out"}},

		{Kind: KindBuyMarket, Type: types.NodeTypeAction, Label: "Buy Market", Category: "Actions",
			Inputs: []string{"Signal"}, Outputs: []string{"OnFill"},
			Params: []ConfigParam{numParam("size", 1.0), numParam("sl", 0), numParam("tp", 0)}},
		{Kind: KindSellMarket, Type: types.NodeTypeAction, Label: "Sell Market", Category: "Actions",
			Inputs: []string{"Signal"}, Outputs: []string{"OnFill"},
			Params: []ConfigParam{numParam("size", 1.0), numParam("sl", 0), numParam("tp", 0)}},
		{Kind: KindClosePosition, Type: types.NodeTypeAction, Label: "Close Position", Category: "Actions",
			Inputs: []string{"Signal"}, Outputs: []string{"OnClosed"},
			Params: []ConfigParam{strParam("pair", "All")}},

		{Kind: KindCustomScript, Type: types.NodeTypeCustom, Label: "Custom Script", Category: "Custom",
			Inputs: []string{"In1", "In2", "In3"}, Outputs: []string{"Out1", "Out2"},
			Params: []ConfigParam{strParam("code", DefaultCustomScript)}},
	}

	byKind := make(map[string]int, len(templates))
	for i, t := range templates {
		byKind[t.Kind] = i
	}

	return &Catalog{templates: templates, byKind: byKind}
}

// DefinitionFor returns the port lists, configurable parameters, and default
// config for a template kind. Fails with ErrCodeUnknownNodeType for an
// unregistered kind.
func (c *Catalog) DefinitionFor(kind string) (Definition, error) {
	idx, ok := c.byKind[kind]
	if !ok {
		return Definition{}, errors.Newf(errors.ErrCodeUnknownNodeType, "unknown node type %q", kind)
	}

	t := c.templates[idx]

	def := Definition{
		Inputs:        append([]string(nil), t.Inputs...),
		Outputs:       append([]string(nil), t.Outputs...),
		Params:        append([]ConfigParam(nil), t.Params...),
		DefaultConfig: make(map[string]types.ConfigValue, len(t.Params)),
	}

	for _, p := range t.Params {
		def.DefaultConfig[p.Name] = p.Default
	}

	return def, nil
}

// Template returns the template registered under kind.
func (c *Catalog) Template(kind string) (Template, error) {
	idx, ok := c.byKind[kind]
	if !ok {
		return Template{}, errors.Newf(errors.ErrCodeUnknownNodeType, "unknown node type %q", kind)
	}

	return c.templates[idx], nil
}

// Templates returns every registered template in catalog order.
func (c *Catalog) Templates() []Template {
	return append([]Template(nil), c.templates...)
}

// PortDefinitions returns the port definitions of a template kind.
func (c *Catalog) PortDefinitions(kind string) ([]types.PortDefinition, error) {
	t, err := c.Template(kind)
	if err != nil {
		return nil, err
	}

	defs := make([]types.PortDefinition, 0, len(t.Inputs)+len(t.Outputs))
	for _, p := range t.Inputs {
		defs = append(defs, types.PortDefinition{Name: p, Direction: types.PortDirectionIn})
	}

	for _, p := range t.Outputs {
		defs = append(defs, types.PortDefinition{Name: p, Direction: types.PortDirectionOut})
	}

	return defs, nil
}
