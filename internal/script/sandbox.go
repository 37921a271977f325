// Package script executes user-supplied custom-node logic in isolation.
//
// A custom node's code is a single HCL expression evaluated against exactly
// two variables, `inputs` and `state`, each an object of scalars. The
// expression must produce an object whose attributes are scalars; attribute
// names matching the node's declared outputs feed the evaluation frame, and
// the full object becomes the node's state for the next tick. The evaluation
// context carries nothing else: no graph, network, or storage access.
package script

import (
	"context"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// DefaultTimeout is the per-call wall-clock budget when none is configured.
const DefaultTimeout = 50 * time.Millisecond

// Sandbox compiles and runs custom-node scripts with a fixed per-call time
// budget. The budget is the only preemption point inside a node's execution.
type Sandbox struct {
	timeout   time.Duration
	functions map[string]function.Function
}

// NewSandbox creates a sandbox with the given per-call budget. A zero or
// negative timeout falls back to DefaultTimeout.
func NewSandbox(timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Sandbox{
		timeout: timeout,
		functions: map[string]function.Function{
			"abs":    stdlib.AbsoluteFunc,
			"min":    stdlib.MinFunc,
			"max":    stdlib.MaxFunc,
			"floor":  stdlib.FloorFunc,
			"ceil":   stdlib.CeilFunc,
			"range":  stdlib.RangeFunc,
			"length": stdlib.LengthFunc,
			"try":    tryfunc.TryFunc,
			"can":    tryfunc.CanFunc,
		},
	}
}

// Program is a compiled custom-node script.
type Program struct {
	expr      hcl.Expression
	timeout   time.Duration
	functions map[string]function.Function
}

// Compile parses the script source. Compilation failures carry
// ErrCodeScriptCompile and surface at validation/schedule time, before any
// tick is processed.
func (s *Sandbox) Compile(code string) (*Program, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(code), "script.hcl", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.ErrCodeScriptCompile, "failed to parse script", diags)
	}

	return &Program{
		expr:      expr,
		timeout:   s.timeout,
		functions: s.functions,
	}, nil
}

type callResult struct {
	outputs map[string]types.Value
	err     error
}

// Call evaluates the program against the given inputs and state. Invalid
// input values are presented to the script as null. Exceeding the time budget
// returns ErrCodeScriptTimeout; any evaluation failure returns
// ErrCodeScriptEval or ErrCodeScriptResult. The caller maps all of these to a
// node fault.
func (p *Program) Call(ctx context.Context, inputs, state map[string]types.Value) (map[string]types.Value, error) {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"inputs": toCtyObject(inputs),
			"state":  toCtyObject(state),
		},
		Functions: p.functions,
	}

	resultCh := make(chan callResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- callResult{err: errors.Newf(errors.ErrCodeScriptEval, "script panicked: %v", r)}
			}
		}()

		value, diags := p.expr.Value(evalCtx)
		if diags.HasErrors() {
			resultCh <- callResult{err: errors.Wrap(errors.ErrCodeScriptEval, "script evaluation failed", diags)}

			return
		}

		outputs, err := fromCtyObject(value)
		resultCh <- callResult{outputs: outputs, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.outputs, res.err
	case <-timer.C:
		return nil, errors.Newf(errors.ErrCodeScriptTimeout, "script exceeded %s budget", p.timeout)
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrCodeScriptTimeout, "script call cancelled", ctx.Err())
	}
}

func toCtyObject(values map[string]types.Value) cty.Value {
	if len(values) == 0 {
		return cty.EmptyObjectVal
	}

	attrs := make(map[string]cty.Value, len(values))

	for name, v := range values {
		switch {
		case !v.Valid:
			attrs[name] = cty.NullVal(cty.Number)
		case v.Kind == types.ValueKindBool:
			attrs[name] = cty.BoolVal(v.Bool)
		default:
			attrs[name] = cty.NumberFloatVal(v.Num)
		}
	}

	return cty.ObjectVal(attrs)
}

func fromCtyObject(value cty.Value) (map[string]types.Value, error) {
	if value.IsNull() || !value.Type().IsObjectType() {
		return nil, errors.New(errors.ErrCodeScriptResult, "script must return an object keyed by output names")
	}

	outputs := make(map[string]types.Value, value.LengthInt())

	for name, attr := range value.AsValueMap() {
		if attr.IsNull() {
			outputs[name] = types.NeutralValue()

			continue
		}

		switch attr.Type() {
		case cty.Bool:
			outputs[name] = types.BoolValue(attr.True())
		case cty.Number:
			num, _ := attr.AsBigFloat().Float64()
			outputs[name] = types.NumberValue(num)
		default:
			return nil, errors.Newf(errors.ErrCodeScriptResult,
				"script output %q must be a number or bool, got %s", name, attr.Type().FriendlyName())
		}
	}

	return outputs, nil
}
