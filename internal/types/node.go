package types

// NodeType is the kind of a strategy graph node.
type NodeType string

const (
	// NodeTypeTrigger is a source node that seeds each tick. Triggers have no inputs.
	NodeTypeTrigger NodeType = "trigger"
	// NodeTypeIndicator is a stateful technical indicator node.
	NodeTypeIndicator NodeType = "indicator"
	// NodeTypeCondition is a logic/comparison node.
	NodeTypeCondition NodeType = "condition"
	// NodeTypeAction is a node that emits a trading signal when fired.
	NodeTypeAction NodeType = "action"
	// NodeTypeCustom is a user-scripted node with a caller-chosen port set.
	NodeTypeCustom NodeType = "custom"
)

// PortDirection tells input ports from output ports.
type PortDirection string

const (
	PortDirectionIn  PortDirection = "in"
	PortDirectionOut PortDirection = "out"
)

// PortDefinition describes one named port on a node type. Identity is
// (node type, name).
type PortDefinition struct {
	Name      string        `json:"name"`
	Direction PortDirection `json:"direction"`
}

// ConfigKind is the kind of a node configuration value.
type ConfigKind string

const (
	// ConfigKindNumber is a numeric parameter.
	ConfigKindNumber ConfigKind = "number"
	// ConfigKindString is a string parameter. Custom-node script source is a
	// string parameter named "code".
	ConfigKindString ConfigKind = "string"
)

// ConfigValue is one typed node configuration value.
type ConfigValue struct {
	Kind ConfigKind `json:"kind"`
	Num  float64    `json:"num,omitempty"`
	Str  string     `json:"str,omitempty"`
}

// NumberConfig returns a numeric config value.
func NumberConfig(n float64) ConfigValue {
	return ConfigValue{Kind: ConfigKindNumber, Num: n}
}

// StringConfig returns a string config value.
func StringConfig(s string) ConfigValue {
	return ConfigValue{Kind: ConfigKindString, Str: s}
}

// Position is a node's canvas position. Pure coordinates, no semantic effect
// on evaluation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one typed unit of computation in the strategy graph.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	// Kind is the catalog template the node was instantiated from
	// (e.g. "rsi", "compare_lt", "buy_market"). It selects the node's
	// compute function and its declared configurable parameters.
	Kind     string                 `json:"kind"`
	Label    string                 `json:"label"`
	Position Position               `json:"position"`
	Inputs   []string               `json:"inputs"`
	Outputs  []string               `json:"outputs"`
	Config   map[string]ConfigValue `json:"config"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	clone := n
	clone.Inputs = append([]string(nil), n.Inputs...)
	clone.Outputs = append([]string(nil), n.Outputs...)
	clone.Config = make(map[string]ConfigValue, len(n.Config))

	for k, v := range n.Config {
		clone.Config[k] = v
	}

	return clone
}

// HasInput reports whether the node declares the named input port.
func (n Node) HasInput(port string) bool {
	for _, p := range n.Inputs {
		if p == port {
			return true
		}
	}

	return false
}

// HasOutput reports whether the node declares the named output port.
func (n Node) HasOutput(port string) bool {
	for _, p := range n.Outputs {
		if p == port {
			return true
		}
	}

	return false
}

// Connection is a directed binding from one node's output port to another
// node's input port. At most one connection may terminate at a given
// (ToNodeID, ToPort).
type Connection struct {
	ID         string `json:"id"`
	FromNodeID string `json:"fromNodeId"`
	FromPort   string `json:"fromPort"`
	ToNodeID   string `json:"toNodeId"`
	ToPort     string `json:"toPort"`
}

// Graph is the set of all nodes plus the set of all connections at a point in
// time. It is the unit persisted, validated, and evaluated.
type Graph struct {
	Version     string       `json:"version"`
	Name        string       `json:"name,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Clone returns a deep structural copy of the graph. The evaluation engine
// snapshots the graph at schedule time so concurrent edits cannot corrupt an
// in-flight run.
func (g Graph) Clone() Graph {
	clone := Graph{
		Version:     g.Version,
		Name:        g.Name,
		Nodes:       make([]Node, 0, len(g.Nodes)),
		Connections: append([]Connection(nil), g.Connections...),
	}

	for _, n := range g.Nodes {
		clone.Nodes = append(clone.Nodes, n.Clone())
	}

	return clone
}

// NodeByID returns the node with the given id.
func (g Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return Node{}, false
}
