package engine

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	engine_types "github.com/strategraph-lab/strategraph/internal/engine"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/feed"
	"github.com/strategraph-lab/strategraph/internal/graph"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type EvalEngineV1TestSuite struct {
	suite.Suite
	store *graph.Store
}

func TestEvalEngineV1Suite(t *testing.T) {
	suite.Run(t, new(EvalEngineV1TestSuite))
}

func (s *EvalEngineV1TestSuite) SetupTest() {
	s.store = graph.NewStore(graph.NewCatalog(), logger.NewNopLogger())
}

func (s *EvalEngineV1TestSuite) newEngine() *EvalEngineV1 {
	e := NewEvalEngineV1()
	s.Require().NoError(e.Initialize("script_timeout_ms: 50"))

	return e.(*EvalEngineV1)
}

// decreasingTicks returns n ticks one minute apart with strictly falling
// prices.
func decreasingTicks(n int, initial, step float64) []types.Tick {
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	ticks := make([]types.Tick, 0, n)

	for i := 0; i < n; i++ {
		ticks = append(ticks, types.Tick{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Symbol: "EURUSD",
			Price:  initial - float64(i)*step,
			Volume: optional.None[float64](),
		})
	}

	return ticks
}

func (s *EvalEngineV1TestSuite) run(source datasource.TickSource) *types.RunResult {
	e := s.newEngine()
	s.Require().NoError(e.LoadGraph(s.store.Graph()))
	s.Require().NoError(e.SetDataSource(source))

	result, err := e.Run(context.Background(), optional.None[engine_types.OnTickCallback]())
	s.Require().NoError(err)

	return result
}

func (s *EvalEngineV1TestSuite) TestRSIBuyScenario() {
	trigger, err := s.store.AddNode(graph.KindTimeTrigger, types.Position{X: 0, Y: 0})
	s.Require().NoError(err)

	rsi, err := s.store.AddNode(graph.KindRSI, types.Position{X: 1, Y: 0})
	s.Require().NoError(err)

	threshold, err := s.store.AddNode(graph.KindConstant, types.Position{X: 1, Y: 1})
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdateConfig(threshold.ID, map[string]types.ConfigValue{
		"value": types.NumberConfig(30),
	}))

	compare, err := s.store.AddNode(graph.KindCompareLT, types.Position{X: 2, Y: 0})
	s.Require().NoError(err)

	buy, err := s.store.AddNode(graph.KindBuyMarket, types.Position{X: 3, Y: 0})
	s.Require().NoError(err)

	_, err = s.store.Connect(trigger.ID, "OnTick", rsi.ID, "Source")
	s.Require().NoError(err)
	_, err = s.store.Connect(rsi.ID, "Value", compare.ID, "A")
	s.Require().NoError(err)
	_, err = s.store.Connect(threshold.ID, "Value", compare.ID, "B")
	s.Require().NoError(err)
	_, err = s.store.Connect(compare.ID, "True", buy.ID, "Signal")
	s.Require().NoError(err)

	ticks := decreasingTicks(20, 100, 0.5)
	result := s.run(feed.NewSliceSource(ticks))

	// RSI(14) needs 15 ticks before its first valid value. Prices fall
	// monotonically, so that first value is 0 and the buy fires there,
	// exactly once.
	s.Require().Len(result.Signals, 1)
	s.Equal(types.ActionTypeBuy, result.Signals[0].Action)
	s.Equal(buy.ID, result.Signals[0].NodeID)
	s.Equal(ticks[14].Time, result.Signals[0].Time)
	s.Equal(ticks[14].Price, result.Signals[0].Price)

	s.False(result.HasFaults())
	s.False(result.Cancelled)
	s.Equal(types.RunStatusCompleted, result.Status)
	s.Equal(20, result.Ticks)
}

func (s *EvalEngineV1TestSuite) TestDeterministicRuns() {
	trigger, err := s.store.AddNode(graph.KindTimeTrigger, types.Position{X: 0, Y: 0})
	s.Require().NoError(err)

	fast, err := s.store.AddNode(graph.KindSMA, types.Position{X: 1, Y: 0})
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdateConfig(fast.ID, map[string]types.ConfigValue{
		"period": types.NumberConfig(5),
	}))

	slow, err := s.store.AddNode(graph.KindSMA, types.Position{X: 1, Y: 1})
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdateConfig(slow.ID, map[string]types.ConfigValue{
		"period": types.NumberConfig(20),
	}))

	cross, err := s.store.AddNode(graph.KindCrossOver, types.Position{X: 2, Y: 0})
	s.Require().NoError(err)

	buy, err := s.store.AddNode(graph.KindBuyMarket, types.Position{X: 3, Y: 0})
	s.Require().NoError(err)

	_, err = s.store.Connect(trigger.ID, "OnTick", fast.ID, "Source")
	s.Require().NoError(err)
	_, err = s.store.Connect(trigger.ID, "OnTick", slow.ID, "Source")
	s.Require().NoError(err)
	_, err = s.store.Connect(fast.ID, "Value", cross.ID, "A")
	s.Require().NoError(err)
	_, err = s.store.Connect(slow.ID, "Value", cross.ID, "B")
	s.Require().NoError(err)
	_, err = s.store.Connect(cross.ID, "True", buy.ID, "Signal")
	s.Require().NoError(err)

	walk := feed.RandomWalkConfig{
		Symbol:       "EURUSD",
		Start:        time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		Interval:     time.Minute,
		InitialPrice: 100,
		Volatility:   0.01,
		Count:        300,
		Seed:         42,
	}

	first := s.run(feed.NewRandomWalk(walk))
	second := s.run(feed.NewRandomWalk(walk))

	s.Require().Equal(first.Signals, second.Signals)
	s.Equal(first.Faults, second.Faults)
	s.Equal(first.Ticks, second.Ticks)
}

func (s *EvalEngineV1TestSuite) TestCyclicGraphRefusesToRun() {
	and, err := s.store.AddNode(graph.KindANDGate, types.Position{X: 0, Y: 0})
	s.Require().NoError(err)

	or, err := s.store.AddNode(graph.KindORGate, types.Position{X: 1, Y: 0})
	s.Require().NoError(err)

	_, err = s.store.Connect(and.ID, "Out", or.ID, "In1")
	s.Require().NoError(err)
	_, err = s.store.Connect(or.ID, "Out", and.ID, "In1")
	s.Require().NoError(err)

	e := s.newEngine()
	s.Require().NoError(e.LoadGraph(s.store.Graph()))
	s.Require().NoError(e.SetDataSource(feed.NewSliceSource(decreasingTicks(5, 100, 1))))

	result, err := e.Run(context.Background(), optional.None[engine_types.OnTickCallback]())
	s.Require().Error(err)
	s.Nil(result)
	s.True(errors.HasCode(err, errors.ErrCodeEngineNotValidated))
	s.Equal(types.RunStatusFailed, e.Status())
}

func (s *EvalEngineV1TestSuite) TestFaultIsolation() {
	trigger, err := s.store.AddNode(graph.KindTimeTrigger, types.Position{X: 0, Y: 0})
	s.Require().NoError(err)

	// Index out of range fails at evaluation time on every tick.
	faulty, err := s.store.AddCustomNode("Faulty", []string{"In1"}, []string{"Out1"},
		`{ Out1 = [1, 2][5] }`, types.Position{X: 1, Y: 0})
	s.Require().NoError(err)

	buy, err := s.store.AddNode(graph.KindBuyMarket, types.Position{X: 2, Y: 0})
	s.Require().NoError(err)

	threshold, err := s.store.AddNode(graph.KindConstant, types.Position{X: 1, Y: 1})
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdateConfig(threshold.ID, map[string]types.ConfigValue{
		"value": types.NumberConfig(5),
	}))

	compare, err := s.store.AddNode(graph.KindCompareGT, types.Position{X: 2, Y: 1})
	s.Require().NoError(err)

	sell, err := s.store.AddNode(graph.KindSellMarket, types.Position{X: 3, Y: 1})
	s.Require().NoError(err)

	_, err = s.store.Connect(trigger.ID, "OnTick", faulty.ID, "In1")
	s.Require().NoError(err)
	_, err = s.store.Connect(faulty.ID, "Out1", buy.ID, "Signal")
	s.Require().NoError(err)
	_, err = s.store.Connect(trigger.ID, "OnTick", compare.ID, "A")
	s.Require().NoError(err)
	_, err = s.store.Connect(threshold.ID, "Value", compare.ID, "B")
	s.Require().NoError(err)
	_, err = s.store.Connect(compare.ID, "True", sell.ID, "Signal")
	s.Require().NoError(err)

	result := s.run(feed.NewSliceSource(decreasingTicks(3, 10, 0.1)))

	// The faulty branch degrades to neutral: no buy ever fires, one fault
	// per tick. The sibling branch is unaffected and fires once.
	s.Require().True(result.HasFaults())
	s.Len(result.Faults, 3)

	for _, fault := range result.Faults {
		s.Equal(faulty.ID, fault.NodeID)
	}

	s.Require().Len(result.Signals, 1)
	s.Equal(types.ActionTypeSell, result.Signals[0].Action)
	s.Equal(sell.ID, result.Signals[0].NodeID)
	s.Equal(types.RunStatusCompleted, result.Status)
}

func (s *EvalEngineV1TestSuite) TestCustomScriptStateAcrossTicks() {
	trigger, err := s.store.AddNode(graph.KindTimeTrigger, types.Position{X: 0, Y: 0})
	s.Require().NoError(err)

	counter, err := s.store.AddCustomNode("Counter", []string{"In1"}, []string{"Out1"},
		`{ count = try(state.count, 0) + 1, Out1 = try(state.count, 0) + 1 >= 3 }`,
		types.Position{X: 1, Y: 0})
	s.Require().NoError(err)

	buy, err := s.store.AddNode(graph.KindBuyMarket, types.Position{X: 2, Y: 0})
	s.Require().NoError(err)

	_, err = s.store.Connect(trigger.ID, "OnTick", counter.ID, "In1")
	s.Require().NoError(err)
	_, err = s.store.Connect(counter.ID, "Out1", buy.ID, "Signal")
	s.Require().NoError(err)

	ticks := decreasingTicks(5, 100, 0.5)
	result := s.run(feed.NewSliceSource(ticks))

	// The counter reaches 3 on the third tick; the action is edge-triggered
	// so it fires exactly once.
	s.False(result.HasFaults())
	s.Require().Len(result.Signals, 1)
	s.Equal(ticks[2].Time, result.Signals[0].Time)
}

func (s *EvalEngineV1TestSuite) TestCooperativeCancellation() {
	trigger, err := s.store.AddNode(graph.KindTimeTrigger, types.Position{X: 0, Y: 0})
	s.Require().NoError(err)

	sma, err := s.store.AddNode(graph.KindSMA, types.Position{X: 1, Y: 0})
	s.Require().NoError(err)

	_, err = s.store.Connect(trigger.ID, "OnTick", sma.ID, "Source")
	s.Require().NoError(err)

	e := s.newEngine()
	s.Require().NoError(e.LoadGraph(s.store.Graph()))
	s.Require().NoError(e.SetDataSource(feed.NewSliceSource(decreasingTicks(100, 100, 0.1))))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var onTick engine_types.OnTickCallback = func(current int, total int) {
		if current == 5 {
			cancel()
		}
	}

	result, err := e.Run(ctx, optional.Some(onTick))
	s.Require().NoError(err)

	// Cancellation is checked at the next tick boundary: the run still
	// completes with the signals emitted so far and a cancellation marker.
	s.True(result.Cancelled)
	s.Equal(5, result.Ticks)
	s.Equal(types.RunStatusCompleted, result.Status)
	s.Equal(types.RunStatusCompleted, e.Status())
}

func (s *EvalEngineV1TestSuite) TestRunWithoutGraphFails() {
	e := s.newEngine()
	s.Require().NoError(e.SetDataSource(feed.NewSliceSource(nil)))

	_, err := e.Run(context.Background(), optional.None[engine_types.OnTickCallback]())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeEngineNotValidated))
}

func (s *EvalEngineV1TestSuite) TestInitializeRejectsBadConfig() {
	e := NewEvalEngineV1()

	err := e.Initialize("script_timeout_ms: [not a number]")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeEngineConfigError))
}

func (s *EvalEngineV1TestSuite) TestConfigSchema() {
	e := s.newEngine()

	schema, err := e.GetConfigSchema()
	s.Require().NoError(err)
	s.Contains(schema, "script_timeout_ms")
}
