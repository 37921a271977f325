package graph

import (
	"path/filepath"
	"testing"

	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSpreadGraph(t *testing.T) types.Graph {
	t.Helper()

	store := NewStore(NewCatalog(), logger.NewNopLogger())

	trigger, err := store.AddNode(KindTimeTrigger, types.Position{X: 0, Y: 0})
	require.NoError(t, err)
	fast, err := store.AddNode(KindSMA, types.Position{X: 200, Y: 0})
	require.NoError(t, err)
	slow, err := store.AddNode(KindSMA, types.Position{X: 200, Y: 150})
	require.NoError(t, err)
	cross, err := store.AddNode(KindCrossOver, types.Position{X: 400, Y: 0})
	require.NoError(t, err)
	buy, err := store.AddNode(KindBuyMarket, types.Position{X: 600, Y: 0})
	require.NoError(t, err)

	require.NoError(t, store.UpdateConfig(fast.ID, map[string]types.ConfigValue{"period": types.NumberConfig(5)}))
	require.NoError(t, store.UpdateConfig(slow.ID, map[string]types.ConfigValue{"period": types.NumberConfig(20)}))

	_, err = store.Connect(trigger.ID, "OnTick", fast.ID, "Source")
	require.NoError(t, err)
	_, err = store.Connect(trigger.ID, "OnTick", slow.ID, "Source")
	require.NoError(t, err)
	_, err = store.Connect(fast.ID, "Value", cross.ID, "A")
	require.NoError(t, err)
	_, err = store.Connect(slow.ID, "Value", cross.ID, "B")
	require.NoError(t, err)
	_, err = store.Connect(cross.ID, "True", buy.ID, "Signal")
	require.NoError(t, err)

	g := store.Graph()
	g.Name = "sma-crossover"

	return g
}

func TestMarshalRoundTrip(t *testing.T) {
	original := buildSpreadGraph(t)

	data, err := Marshal(original)
	require.NoError(t, err)

	loaded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, loaded.Version)
	assert.Equal(t, original.Name, loaded.Name)
	assert.Equal(t, original.Nodes, loaded.Nodes)
	assert.Equal(t, original.Connections, loaded.Connections)
}

func TestSaveAndLoadFile(t *testing.T) {
	original := buildSpreadGraph(t)
	path := filepath.Join(t.TempDir(), "strategy.json")

	require.NoError(t, Save(path, original))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original.Nodes, loaded.Nodes)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGraphParseFailed, errors.GetCode(err))
}

func TestUnmarshalRejectsIncompatibleVersions(t *testing.T) {
	g := buildSpreadGraph(t)

	for _, version := range []string{"2.0.0", "1.1.0"} {
		g.Version = version

		data, err := Marshal(g)
		require.NoError(t, err)

		_, err = Unmarshal(data)
		require.Error(t, err, "version %s must be rejected", version)
		assert.Equal(t, errors.ErrCodeVersionMismatch, errors.GetCode(err))
	}

	// Patch releases stay loadable.
	g.Version = "1.0.7"
	data, err := Marshal(g)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	assert.NoError(t, err)
}

func TestUnmarshalDefaultsMissingVersion(t *testing.T) {
	loaded, err := Unmarshal([]byte(`{"nodes": [], "connections": []}`))
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, loaded.Version)
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	_, err := Unmarshal([]byte(`{"nodes": [`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGraphParseFailed, errors.GetCode(err))
}

func TestUnmarshalChecksIntegrity(t *testing.T) {
	base := buildSpreadGraph(t)

	t.Run("duplicate node id", func(t *testing.T) {
		g := base.Clone()
		g.Nodes = append(g.Nodes, g.Nodes[0].Clone())

		data, err := Marshal(g)
		require.NoError(t, err)

		_, err = Unmarshal(data)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeDuplicateNodeID, errors.GetCode(err))
	})

	t.Run("connection to missing node", func(t *testing.T) {
		g := base.Clone()
		g.Connections[0].ToNodeID = "ghost"

		data, err := Marshal(g)
		require.NoError(t, err)

		_, err = Unmarshal(data)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeNodeNotFound, errors.GetCode(err))
	})

	t.Run("connection to missing port", func(t *testing.T) {
		g := base.Clone()
		g.Connections[0].ToPort = "Sideways"

		data, err := Marshal(g)
		require.NoError(t, err)

		_, err = Unmarshal(data)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodePortNotFound, errors.GetCode(err))
	})

	t.Run("two producers on one input", func(t *testing.T) {
		g := base.Clone()
		duplicate := g.Connections[0]
		duplicate.ID = "dup"
		g.Connections = append(g.Connections, duplicate)

		data, err := Marshal(g)
		require.NoError(t, err)

		_, err = Unmarshal(data)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeDuplicateInputBinding, errors.GetCode(err))
	})
}

func TestGenerateSchemaJSON(t *testing.T) {
	schema, err := GenerateSchemaJSON()
	require.NoError(t, err)
	assert.Contains(t, schema, `"strategy-graph"`)
	assert.Contains(t, schema, `"connections"`)
}
