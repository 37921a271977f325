package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/strategraph-lab/strategraph/internal/types"
)

// Validate checks a graph for cycles and unbound inputs. It is pure and
// side-effect-free, and returns every finding at once rather than stopping at
// the first. Findings are ordered: cycle findings first, then unbound inputs,
// each in ascending node-id order so identical graphs always validate
// identically.
func Validate(g types.Graph) types.ValidationResult {
	var result types.ValidationResult

	result.Findings = append(result.Findings, findCycles(g)...)
	result.Findings = append(result.Findings, findUnboundInputs(g)...)

	return result
}

const (
	colorWhite = 0 // unvisited
	colorGrey  = 1 // on the recursion stack
	colorBlack = 2 // fully explored
)

// findCycles runs a depth-first traversal tracking the recursion stack. Any
// node revisited while still on the stack names a cycle. Trigger nodes carry
// no exemption here: a trigger reachable in a loop is still reported.
func findCycles(g types.Graph) []types.Finding {
	adjacency := make(map[string][]string)
	for _, c := range g.Connections {
		adjacency[c.FromNodeID] = append(adjacency[c.FromNodeID], c.ToNodeID)
	}

	// Deterministic traversal order.
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}

	sort.Strings(ids)

	for _, neighbors := range adjacency {
		sort.Strings(neighbors)
	}

	color := make(map[string]int, len(ids))
	stack := make([]string, 0, len(ids))

	var findings []types.Finding

	var visit func(id string)
	visit = func(id string) {
		color[id] = colorGrey
		stack = append(stack, id)

		for _, next := range adjacency[id] {
			switch color[next] {
			case colorWhite:
				visit(next)
			case colorGrey:
				// Reconstruct the cycle from the point `next` entered the stack.
				start := 0
				for i, s := range stack {
					if s == next {
						start = i

						break
					}
				}

				cycle := append([]string(nil), stack[start:]...)
				findings = append(findings, types.Finding{
					Kind:    types.FindingKindCycle,
					NodeID:  next,
					Cycle:   cycle,
					Message: fmt.Sprintf("cycle detected: %s", strings.Join(append(cycle, next), " -> ")),
				})
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorBlack
	}

	for _, id := range ids {
		if color[id] == colorWhite {
			visit(id)
		}
	}

	return findings
}

// findUnboundInputs checks that every declared input has exactly one incoming
// connection. All declared inputs are required; trigger nodes satisfy this by
// construction because their input lists are empty.
func findUnboundInputs(g types.Graph) []types.Finding {
	bound := make(map[string]bool, len(g.Connections))
	for _, c := range g.Connections {
		bound[c.ToNodeID+"\x00"+c.ToPort] = true
	}

	nodes := append([]types.Node(nil), g.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var findings []types.Finding

	for _, n := range nodes {
		for _, port := range n.Inputs {
			if bound[n.ID+"\x00"+port] {
				continue
			}

			findings = append(findings, types.Finding{
				Kind:    types.FindingKindUnboundInput,
				NodeID:  n.ID,
				Port:    port,
				Message: fmt.Sprintf("input %q on node %s has no producer", port, n.ID),
			})
		}
	}

	return findings
}
