package engine

import (
	"testing"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(id string) types.Node {
	return types.Node{ID: id, Type: types.NodeTypeCondition, Kind: "and_gate"}
}

func testConn(id, from, to string) types.Connection {
	return types.Connection{ID: id, FromNodeID: from, FromPort: "Out", ToNodeID: to, ToPort: "In1"}
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("respects every connection", func(t *testing.T) {
		g := types.Graph{
			Nodes: []types.Node{
				testNode("d"), testNode("b"), testNode("a"), testNode("c"), testNode("e"),
			},
			Connections: []types.Connection{
				testConn("1", "a", "b"),
				testConn("2", "a", "c"),
				testConn("3", "b", "d"),
				testConn("4", "c", "d"),
				testConn("5", "d", "e"),
			},
		}

		order, err := topologicalOrder(g)
		require.NoError(t, err)
		require.Len(t, order, 5)

		position := make(map[string]int, len(order))
		for i, id := range order {
			position[id] = i
		}

		for _, c := range g.Connections {
			assert.Less(t, position[c.FromNodeID], position[c.ToNodeID],
				"connection %s -> %s out of order", c.FromNodeID, c.ToNodeID)
		}
	})

	t.Run("breaks ties by ascending node id", func(t *testing.T) {
		g := types.Graph{
			Nodes: []types.Node{
				testNode("z"), testNode("m"), testNode("a"),
			},
		}

		order, err := topologicalOrder(g)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "m", "z"}, order)
	})

	t.Run("rejects a cycle", func(t *testing.T) {
		g := types.Graph{
			Nodes: []types.Node{testNode("a"), testNode("b")},
			Connections: []types.Connection{
				testConn("1", "a", "b"),
				testConn("2", "b", "a"),
			},
		}

		_, err := topologicalOrder(g)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeCyclicGraph))
	})
}
