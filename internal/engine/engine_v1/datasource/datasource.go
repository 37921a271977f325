package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/types"
)

// SQLResult represents a row of data from a SQL query.
type SQLResult struct {
	Values map[string]interface{}
}

// TickSource supplies a finite, timestamp-ordered sequence of ticks to an
// evaluation run. ReadAll is a lazy iterator: the caller pulls ticks one at a
// time and stops consumption to cancel.
type TickSource interface {
	// Initialize loads tick data from the given path.
	Initialize(path string) error
	// ReadAll reads all ticks in timestamp order and yields them to the caller.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Tick, error) bool)
	// ReadLastTick reads the most recent tick for a specific symbol.
	ReadLastTick(symbol string) (types.Tick, error)
	// ExecuteSQL executes a raw SQL query and returns the results as SQLResult.
	ExecuteSQL(query string, params ...interface{}) ([]SQLResult, error)
	// Count returns the number of ticks in the source.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close closes the data source and releases any resources.
	Close() error
}
