package feed

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// SliceSource serves ticks from memory, in timestamp order. It backs inline
// tick data from API requests and hand-built sequences in tests.
type SliceSource struct {
	ticks []types.Tick
}

// NewSliceSource creates a tick source over the given ticks. The slice is
// copied and sorted by timestamp.
func NewSliceSource(ticks []types.Tick) *SliceSource {
	sorted := append([]types.Tick(nil), ticks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return &SliceSource{ticks: sorted}
}

// Initialize implements datasource.TickSource by loading a JSON array of
// ticks from the given path.
func (s *SliceSource) Initialize(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read tick file %s", path)
	}

	var ticks []types.Tick
	if err := json.Unmarshal(data, &ticks); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to parse tick file %s", path)
	}

	s.ticks = NewSliceSource(ticks).ticks

	return nil
}

// ReadAll implements datasource.TickSource.
func (s *SliceSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Tick, error) bool) {
	return func(yield func(types.Tick, error) bool) {
		for _, tick := range s.ticks {
			if start.IsSome() && tick.Time.Before(start.Unwrap()) {
				continue
			}

			if end.IsSome() && tick.Time.After(end.Unwrap()) {
				return
			}

			if !yield(tick, nil) {
				return
			}
		}
	}
}

// ReadLastTick implements datasource.TickSource.
func (s *SliceSource) ReadLastTick(symbol string) (types.Tick, error) {
	for i := len(s.ticks) - 1; i >= 0; i-- {
		if s.ticks[i].Symbol == symbol {
			return s.ticks[i], nil
		}
	}

	return types.Tick{}, errors.Newf(errors.ErrCodeNoDataFound, "no ticks found for symbol %s", symbol)
}

// ExecuteSQL implements datasource.TickSource.
func (s *SliceSource) ExecuteSQL(query string, params ...interface{}) ([]datasource.SQLResult, error) {
	return nil, errors.New(errors.ErrCodeQueryFailed, "slice feed does not support SQL")
}

// Count implements datasource.TickSource.
func (s *SliceSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, err := range s.ReadAll(start, end) {
		if err != nil {
			return 0, err
		}

		count++
	}

	return count, nil
}

// Close implements datasource.TickSource.
func (s *SliceSource) Close() error {
	return nil
}
