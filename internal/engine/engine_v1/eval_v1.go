package engine

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/engine"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/graph"
	"github.com/strategraph-lab/strategraph/internal/indicator"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/script"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// EvalEngineV1 evaluates a strategy graph against a tick stream. Evaluation is
// single-threaded and synchronous per run: ticks are processed strictly in
// timestamp order, and within a tick nodes execute strictly in topological
// order.
type EvalEngineV1 struct {
	config   EvalEngineV1Config
	log      *logger.Logger
	catalog  *graph.Catalog
	registry indicator.Registry
	sandbox  *script.Sandbox
	source   datasource.TickSource
	graph    types.Graph
	loaded   bool
	status   types.RunStatus
	mu       sync.Mutex
}

// NewEvalEngineV1 creates an uninitialized evaluation engine.
func NewEvalEngineV1() engine.Engine {
	return &EvalEngineV1{
		config:   EmptyConfig(),
		log:      nil,
		catalog:  graph.NewCatalog(),
		registry: nil,
		sandbox:  nil,
		source:   nil,
		graph:    types.Graph{},
		loaded:   false,
		status:   types.RunStatusIdle,
	}
}

// Initialize implements engine.Engine.
func (e *EvalEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &e.config); err != nil {
		return errors.Wrap(errors.ErrCodeEngineConfigError, "failed to parse engine config", err)
	}

	if err := e.config.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeEngineConfigError, "invalid engine config", err)
	}

	var loggerError error

	e.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	e.log.Debug("Evaluation engine initialized",
		zap.String("config", config),
	)

	e.registry = indicator.NewDefaultRegistry()
	e.sandbox = script.NewSandbox(e.config.ScriptTimeout())

	return nil
}

// LoadGraph implements engine.Engine.
func (e *EvalEngineV1) LoadGraph(g types.Graph) error {
	e.graph = g.Clone()
	e.loaded = true

	e.log.Debug("Graph loaded",
		zap.String("name", g.Name),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("connections", len(g.Connections)),
	)

	return nil
}

// LoadGraphFromFile implements engine.Engine.
func (e *EvalEngineV1) LoadGraphFromFile(path string) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}

	return e.LoadGraph(g)
}

// SetDataSource implements engine.Engine.
func (e *EvalEngineV1) SetDataSource(source datasource.TickSource) error {
	e.source = source

	return nil
}

// Validate implements engine.Engine.
func (e *EvalEngineV1) Validate() (types.ValidationResult, error) {
	if !e.loaded {
		return types.ValidationResult{}, errors.New(errors.ErrCodeEngineNotValidated, "no graph loaded")
	}

	return graph.Validate(e.graph), nil
}

// Status implements engine.Engine.
func (e *EvalEngineV1) Status() types.RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

// TimeRange implements engine.Engine.
func (e *EvalEngineV1) TimeRange() (optional.Option[time.Time], optional.Option[time.Time]) {
	return e.config.StartTime, e.config.EndTime
}

// GetConfigSchema implements engine.Engine.
func (e *EvalEngineV1) GetConfigSchema() (string, error) {
	config := e.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeEngineConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

// Run implements engine.Engine.
func (e *EvalEngineV1) Run(ctx context.Context, onTick optional.Option[engine.OnTickCallback]) (*types.RunResult, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.finish()

	if err := e.preRunCheck(); err != nil {
		e.setStatus(types.RunStatusFailed)

		return nil, err
	}

	// Snapshot the graph so a concurrent edit cannot corrupt the run.
	snapshot := e.graph.Clone()

	validation := graph.Validate(snapshot)
	if !validation.IsOK() {
		e.setStatus(types.RunStatusFailed)

		return nil, errors.Newf(errors.ErrCodeEngineNotValidated, "graph failed validation: %s", validation.String())
	}

	e.setStatus(types.RunStatusScheduled)

	order, err := topologicalOrder(snapshot)
	if err != nil {
		e.setStatus(types.RunStatusFailed)

		return nil, err
	}

	runtimes, err := e.buildRuntimes(snapshot)
	if err != nil {
		e.setStatus(types.RunStatusFailed)

		return nil, err
	}

	total, err := e.source.Count(e.config.StartTime, e.config.EndTime)
	if err != nil {
		return nil, err
	}

	e.setStatus(types.RunStatusRunning)
	e.log.Debug("Run started",
		zap.String("graph", snapshot.Name),
		zap.Int("nodes", len(order)),
		zap.Int("ticks", total),
	)

	result := &types.RunResult{
		Status:  types.RunStatusCompleted,
		Signals: []types.Signal{},
		Faults:  []types.NodeFault{},
	}

	current := 0

	for tick, readErr := range e.source.ReadAll(e.config.StartTime, e.config.EndTime) {
		if readErr != nil {
			return nil, readErr
		}

		// Cancellation is cooperative, checked once per tick boundary.
		select {
		case <-ctx.Done():
			result.Cancelled = true
		default:
		}

		if result.Cancelled {
			break
		}

		e.evaluateTick(ctx, tick, order, runtimes, result)

		current++
		result.Ticks = current

		if onTick.IsSome() {
			onTick.Unwrap()(current, total)
		}
	}

	e.setStatus(types.RunStatusCompleted)
	e.log.Debug("Run finished",
		zap.Int("ticks", result.Ticks),
		zap.Int("signals", len(result.Signals)),
		zap.Int("faults", len(result.Faults)),
		zap.Bool("cancelled", result.Cancelled),
	)

	return result, nil
}

func (e *EvalEngineV1) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == types.RunStatusRunning || e.status == types.RunStatusScheduled {
		return errors.New(errors.ErrCodeEngineAlreadyRunning, "a run is already in progress")
	}

	e.status = types.RunStatusScheduled

	return nil
}

func (e *EvalEngineV1) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == types.RunStatusScheduled || e.status == types.RunStatusRunning {
		e.status = types.RunStatusFailed
	}
}

func (e *EvalEngineV1) setStatus(status types.RunStatus) {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
}

func (e *EvalEngineV1) preRunCheck() error {
	if e.log == nil {
		return errors.New(errors.ErrCodeEngineConfigError, "engine not initialized")
	}

	if !e.loaded {
		return errors.New(errors.ErrCodeEngineNotValidated, "no graph loaded")
	}

	if e.source == nil {
		return errors.New(errors.ErrCodeDataSourceUnavailable, "no data source set")
	}

	return nil
}
