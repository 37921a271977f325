package engine

import (
	"sort"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// topologicalOrder computes the node execution order with Kahn's algorithm.
// Ties between simultaneously-ready nodes are broken by ascending node id so
// that identical graphs and inputs always evaluate in the same order.
func topologicalOrder(g types.Graph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	adjacency := make(map[string][]string, len(g.Nodes))

	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}

	for _, c := range g.Connections {
		adjacency[c.FromNodeID] = append(adjacency[c.FromNodeID], c.ToNodeID)
		inDegree[c.ToNodeID]++
	}

	ready := make([]string, 0, len(g.Nodes))
	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	sort.Strings(ready)

	order := make([]string, 0, len(g.Nodes))

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false

		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
				released = true
			}
		}

		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, errors.New(errors.ErrCodeCyclicGraph, "graph contains a cycle, cannot schedule")
	}

	return order, nil
}
