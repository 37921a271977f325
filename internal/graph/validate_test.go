package graph

import (
	"testing"

	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	return NewStore(NewCatalog(), logger.NewNopLogger())
}

func TestValidateAcceptsCompleteStrategy(t *testing.T) {
	store := newTestStore(t)

	trigger, err := store.AddNode(KindTimeTrigger, types.Position{})
	require.NoError(t, err)
	rsi, err := store.AddNode(KindRSI, types.Position{})
	require.NoError(t, err)
	constant, err := store.AddNode(KindConstant, types.Position{})
	require.NoError(t, err)
	compare, err := store.AddNode(KindCompareLT, types.Position{})
	require.NoError(t, err)
	buy, err := store.AddNode(KindBuyMarket, types.Position{})
	require.NoError(t, err)

	_, err = store.Connect(trigger.ID, "OnTick", rsi.ID, "Source")
	require.NoError(t, err)
	_, err = store.Connect(rsi.ID, "Value", compare.ID, "A")
	require.NoError(t, err)
	_, err = store.Connect(constant.ID, "Value", compare.ID, "B")
	require.NoError(t, err)
	_, err = store.Connect(compare.ID, "True", buy.ID, "Signal")
	require.NoError(t, err)

	result := Validate(store.Graph())
	assert.True(t, result.IsOK(), "findings: %v", result.Findings)
}

func TestValidateReportsCycleWithNodeSequence(t *testing.T) {
	store := newTestStore(t)

	and, err := store.AddNode(KindANDGate, types.Position{})
	require.NoError(t, err)
	or, err := store.AddNode(KindORGate, types.Position{})
	require.NoError(t, err)

	_, err = store.Connect(and.ID, "Out", or.ID, "In1")
	require.NoError(t, err)
	_, err = store.Connect(or.ID, "Out", and.ID, "In1")
	require.NoError(t, err)

	result := Validate(store.Graph())
	require.False(t, result.IsOK())

	var cycles []types.Finding
	for _, f := range result.Findings {
		if f.Kind == types.FindingKindCycle {
			cycles = append(cycles, f)
		}
	}

	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0].Cycle, 2)
	assert.Contains(t, cycles[0].Cycle, and.ID)
	assert.Contains(t, cycles[0].Cycle, or.ID)
}

func TestValidateReportsUnboundInputs(t *testing.T) {
	store := newTestStore(t)

	rsi, err := store.AddNode(KindRSI, types.Position{})
	require.NoError(t, err)
	compare, err := store.AddNode(KindCompareGT, types.Position{})
	require.NoError(t, err)

	_, err = store.Connect(rsi.ID, "Value", compare.ID, "A")
	require.NoError(t, err)

	result := Validate(store.Graph())
	require.False(t, result.IsOK())
	require.Len(t, result.Findings, 2)

	for _, f := range result.Findings {
		assert.Equal(t, types.FindingKindUnboundInput, f.Kind)
	}

	// One finding for the RSI source, one for the comparator's B input.
	ports := map[string]string{
		result.Findings[0].NodeID: result.Findings[0].Port,
		result.Findings[1].NodeID: result.Findings[1].Port,
	}
	assert.Equal(t, "Source", ports[rsi.ID])
	assert.Equal(t, "B", ports[compare.ID])
}

func TestValidateTriggersNeedNoInputs(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddNode(KindTimeTrigger, types.Position{})
	require.NoError(t, err)
	_, err = store.AddNode(KindPriceUpdate, types.Position{})
	require.NoError(t, err)
	_, err = store.AddNode(KindConstant, types.Position{})
	require.NoError(t, err)

	result := Validate(store.Graph())
	assert.True(t, result.IsOK())
}

func TestValidateIsDeterministic(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 6; i++ {
		_, err := store.AddNode(KindCompareGT, types.Position{})
		require.NoError(t, err)
	}

	first := Validate(store.Graph())
	second := Validate(store.Graph())
	assert.Equal(t, first, second)

	// Findings come out sorted by node id, so order survives graph rebuilds.
	for i := 1; i < len(first.Findings); i++ {
		assert.LessOrEqual(t, first.Findings[i-1].NodeID, first.Findings[i].NodeID)
	}
}
