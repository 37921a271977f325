package engine

import (
	"context"

	"github.com/strategraph-lab/strategraph/internal/graph"
	"github.com/strategraph-lab/strategraph/internal/script"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"

	"github.com/strategraph-lab/strategraph/internal/indicator"
)

// portKey addresses one (node, port) slot in the per-tick evaluation frame.
type portKey struct {
	node string
	port string
}

// nodeRuntime holds one node's per-run state: its resolved input bindings and
// whatever the node kind carries across ticks (indicator windows, cross-over
// history, custom-script state, action edge state).
type nodeRuntime struct {
	node   types.Node
	inputs map[string]portKey

	indicator indicator.Indicator
	program   *script.Program
	state     map[string]types.Value

	prevA     types.Value
	prevB     types.Value
	prevFired bool

	// broken is a schedule-time failure (indicator config, script compile).
	// It is reported as a fault once, on the first tick; the node emits
	// neutral values for the whole run.
	broken         error
	brokenReported bool
}

// buildRuntimes prepares per-node state for one run: input bindings from the
// snapshot's connections, a fresh indicator instance per indicator node, and a
// compiled program per custom node. Indicator state always starts cold.
func (e *EvalEngineV1) buildRuntimes(snapshot types.Graph) (map[string]*nodeRuntime, error) {
	runtimes := make(map[string]*nodeRuntime, len(snapshot.Nodes))

	for _, n := range snapshot.Nodes {
		rt := &nodeRuntime{
			node:   n,
			inputs: make(map[string]portKey, len(n.Inputs)),
		}

		switch n.Type {
		case types.NodeTypeIndicator:
			instance, err := e.registry.Create(types.IndicatorType(n.Kind))
			if err != nil {
				rt.broken = err

				break
			}

			if err := instance.Config(numericConfig(n.Config)); err != nil {
				rt.broken = err

				break
			}

			rt.indicator = instance
		case types.NodeTypeCustom:
			code := n.Config["code"].Str

			program, err := e.sandbox.Compile(code)
			if err != nil {
				rt.broken = err

				break
			}

			rt.program = program
			rt.state = map[string]types.Value{}
		case types.NodeTypeTrigger, types.NodeTypeCondition, types.NodeTypeAction:
		default:
			return nil, errors.Newf(errors.ErrCodeUnknownNodeType, "unknown node type %q", n.Type)
		}

		runtimes[n.ID] = rt
	}

	for _, c := range snapshot.Connections {
		rt, ok := runtimes[c.ToNodeID]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeNodeNotFound, "connection %s references missing node %s", c.ID, c.ToNodeID)
		}

		rt.inputs[c.ToPort] = portKey{node: c.FromNodeID, port: c.FromPort}
	}

	return runtimes, nil
}

// evaluateTick runs one tick through every node in topological order. A node
// fault is recorded, its outputs degrade to neutral for this tick, and the
// run continues.
func (e *EvalEngineV1) evaluateTick(ctx context.Context, tick types.Tick, order []string, runtimes map[string]*nodeRuntime, result *types.RunResult) {
	frame := make(map[portKey]types.Value, len(order)*2)

	for _, id := range order {
		rt := runtimes[id]

		outputs, signal, err := e.computeNode(ctx, rt, tick, frame)
		if err != nil {
			if reportable(rt, err) {
				result.Faults = append(result.Faults, types.NodeFault{
					NodeID: id,
					Time:   tick.Time,
					Cause:  err.Error(),
				})
			}

			outputs = neutralOutputs(rt.node.Outputs)
		}

		for port, value := range outputs {
			frame[portKey{node: id, port: port}] = value
		}

		if signal != nil {
			result.Signals = append(result.Signals, *signal)
		}
	}
}

// reportable decides whether a compute error becomes a fault entry. Runtime
// faults are reported every occurrence; a schedule-time breakage is reported
// only on its first tick to keep the fault list readable.
func reportable(rt *nodeRuntime, err error) bool {
	if err != rt.broken {
		return true
	}

	if rt.brokenReported {
		return false
	}

	rt.brokenReported = true

	return true
}

func (e *EvalEngineV1) computeNode(ctx context.Context, rt *nodeRuntime, tick types.Tick, frame map[portKey]types.Value) (map[string]types.Value, *types.Signal, error) {
	if rt.broken != nil {
		return nil, nil, rt.broken
	}

	inputs := gatherInputs(rt, frame)

	switch rt.node.Kind {
	case graph.KindTimeTrigger:
		return map[string]types.Value{"OnTick": types.NumberValue(tick.Price)}, nil, nil
	case graph.KindPriceUpdate:
		return map[string]types.Value{"OnPrice": types.NumberValue(tick.Price)}, nil, nil
	case graph.KindConstant:
		return map[string]types.Value{"Value": types.NumberValue(rt.node.Config["value"].Num)}, nil, nil

	case graph.KindRSI, graph.KindSMA, graph.KindEMA, graph.KindBollinger, graph.KindMACD,
		graph.KindATR, graph.KindStochastic:
		return computeIndicator(rt, tick, inputs), nil, nil

	case graph.KindCompareGT:
		return compareOutputs(inputs["A"], inputs["B"], func(a, b float64) bool { return a > b }), nil, nil
	case graph.KindCompareLT:
		return compareOutputs(inputs["A"], inputs["B"], func(a, b float64) bool { return a < b }), nil, nil
	case graph.KindCrossOver:
		return computeCrossOver(rt, inputs["A"], inputs["B"]), nil, nil
	case graph.KindANDGate:
		return map[string]types.Value{"Out": types.BoolValue(inputs["In1"].Truthy() && inputs["In2"].Truthy())}, nil, nil
	case graph.KindORGate:
		return map[string]types.Value{"Out": types.BoolValue(inputs["In1"].Truthy() || inputs["In2"].Truthy())}, nil, nil

	case graph.KindBuyMarket:
		return computeAction(rt, tick, inputs["Signal"], types.ActionTypeBuy, "OnFill")
	case graph.KindSellMarket:
		return computeAction(rt, tick, inputs["Signal"], types.ActionTypeSell, "OnFill")
	case graph.KindClosePosition:
		return computeAction(rt, tick, inputs["Signal"], types.ActionTypeClose, "OnClosed")

	case graph.KindCustomScript:
		outputs, err := e.computeCustom(ctx, rt, inputs)

		return outputs, nil, err
	}

	return nil, nil, errors.Newf(errors.ErrCodeUnknownNodeType, "unknown node template %q", rt.node.Kind)
}

func gatherInputs(rt *nodeRuntime, frame map[portKey]types.Value) map[string]types.Value {
	inputs := make(map[string]types.Value, len(rt.node.Inputs))

	for _, port := range rt.node.Inputs {
		ref, bound := rt.inputs[port]
		if !bound {
			inputs[port] = types.InvalidValue()

			continue
		}

		value, ok := frame[ref]
		if !ok {
			value = types.InvalidValue()
		}

		inputs[port] = value
	}

	return inputs
}

// computeIndicator steps the node's indicator instance with the tick's source
// value. Indicators with a Source input consume their producer's output; ATR
// and Stochastic have no inputs and read the tick price directly. An invalid
// source (an upstream indicator still warming up) is not fed into the window;
// the outputs stay invalid for this tick.
func computeIndicator(rt *nodeRuntime, tick types.Tick, inputs map[string]types.Value) map[string]types.Value {
	source := types.NumberValue(tick.Price)
	if rt.node.HasInput("Source") {
		source = inputs["Source"]
	}

	if !source.Valid {
		outputs := make(map[string]types.Value, len(rt.node.Outputs))
		for _, port := range rt.node.Outputs {
			outputs[port] = types.InvalidValue()
		}

		return outputs
	}

	return rt.indicator.Step(source.Number())
}

// compareOutputs emits the two-way condition result. An invalid operand makes
// both branches false so that downstream actions never fire on warm-up data.
func compareOutputs(a, b types.Value, cmp func(a, b float64) bool) map[string]types.Value {
	if !a.Valid || !b.Valid {
		return map[string]types.Value{
			"True":  types.BoolValue(false),
			"False": types.BoolValue(false),
		}
	}

	hit := cmp(a.Number(), b.Number())

	return map[string]types.Value{
		"True":  types.BoolValue(hit),
		"False": types.BoolValue(!hit),
	}
}

// computeCrossOver fires once when A crosses from at-or-below B to above B
// between consecutive ticks. Both the previous and current pair must be valid.
func computeCrossOver(rt *nodeRuntime, a, b types.Value) map[string]types.Value {
	crossed := rt.prevA.Valid && rt.prevB.Valid && a.Valid && b.Valid &&
		rt.prevA.Number() <= rt.prevB.Number() && a.Number() > b.Number()

	if a.Valid && b.Valid {
		rt.prevA, rt.prevB = a, b
	}

	return map[string]types.Value{
		"True":  types.BoolValue(crossed),
		"False": types.BoolValue(!crossed && a.Valid && b.Valid),
	}
}

// computeAction emits a trading signal on the rising edge of a truthy Signal
// input. Level-triggered emission would repeat the same instruction every tick
// the condition holds; edge triggering emits it once per transition.
func computeAction(rt *nodeRuntime, tick types.Tick, signal types.Value, action types.ActionType, fillPort string) (map[string]types.Value, *types.Signal, error) {
	fired := signal.Truthy() && !rt.prevFired
	rt.prevFired = signal.Truthy()

	outputs := map[string]types.Value{fillPort: types.BoolValue(fired)}

	if !fired {
		return outputs, nil, nil
	}

	emitted := &types.Signal{
		Time:   tick.Time,
		Symbol: tick.Symbol,
		NodeID: rt.node.ID,
		Action: action,
		Price:  tick.Price,
		Config: rt.node.Clone().Config,
	}

	return outputs, emitted, nil
}

// computeCustom calls the node's compiled script with the gathered inputs and
// the state object left by the previous tick. The full returned object becomes
// the next state; only declared output names reach the frame, and a declared
// output the script did not return defaults to neutral.
func (e *EvalEngineV1) computeCustom(ctx context.Context, rt *nodeRuntime, inputs map[string]types.Value) (map[string]types.Value, error) {
	returned, err := rt.program.Call(ctx, inputs, rt.state)
	if err != nil {
		return nil, err
	}

	rt.state = returned

	outputs := make(map[string]types.Value, len(rt.node.Outputs))

	for _, port := range rt.node.Outputs {
		value, ok := returned[port]
		if !ok {
			value = types.NeutralValue()
		}

		outputs[port] = value
	}

	return outputs, nil
}

func neutralOutputs(ports []string) map[string]types.Value {
	outputs := make(map[string]types.Value, len(ports))
	for _, port := range ports {
		outputs[port] = types.NeutralValue()
	}

	return outputs
}

func numericConfig(config map[string]types.ConfigValue) map[string]float64 {
	params := make(map[string]float64, len(config))

	for name, value := range config {
		if value.Kind == types.ConfigKindNumber {
			params[name] = value.Num
		}
	}

	return params
}
