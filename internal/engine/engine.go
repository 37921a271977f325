package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/types"
)

// OnTickCallback is called after each processed tick with the current tick
// index and the total tick count.
type OnTickCallback func(current int, total int)

// Engine evaluates a strategy graph against a tick stream and produces a
// deterministic sequence of trading signals.
type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// LoadGraph loads the strategy graph to evaluate. The engine snapshots
	// the graph at schedule time, so later edits do not affect an in-flight
	// run.
	LoadGraph(graph types.Graph) error
	// LoadGraphFromFile loads a serialized strategy graph from the given path.
	LoadGraphFromFile(path string) error
	// SetDataSource sets the tick source for the engine.
	SetDataSource(source datasource.TickSource) error
	// Validate runs graph validation and returns the collected findings
	// without starting a run.
	Validate() (types.ValidationResult, error)
	// Run evaluates the loaded graph against the tick stream. The context
	// cancels the run cooperatively at the next tick boundary: the result is
	// still Completed, carries the signals emitted so far, and is marked
	// Cancelled.
	Run(ctx context.Context, onTick optional.Option[OnTickCallback]) (*types.RunResult, error)
	// Status returns the engine's current run status.
	Status() types.RunStatus
	// TimeRange returns the configured evaluation window. Callers replaying
	// the tick stream against a run's signals must read the same window.
	TimeRange() (start optional.Option[time.Time], end optional.Option[time.Time])
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
