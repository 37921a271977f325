package types

import (
	"fmt"
	"strings"
)

// FindingKind classifies one validation finding.
type FindingKind string

const (
	// FindingKindCycle reports a directed cycle among nodes.
	FindingKindCycle FindingKind = "cycle"
	// FindingKindUnboundInput reports a declared input with no incoming connection.
	FindingKindUnboundInput FindingKind = "unbound_input"
)

// Finding is one validation problem tied to a node or connection.
type Finding struct {
	Kind   FindingKind `json:"kind"`
	NodeID string      `json:"nodeId,omitempty"`
	Port   string      `json:"port,omitempty"`
	// Cycle holds the node id sequence of the detected cycle, in traversal
	// order, for cycle findings.
	Cycle   []string `json:"cycle,omitempty"`
	Message string   `json:"message"`
}

// ValidationResult is the full, ordered list of findings for a graph. All
// findings are reported together rather than stopping at the first.
type ValidationResult struct {
	Findings []Finding `json:"findings"`
}

// IsOK reports whether the graph passed validation.
func (r ValidationResult) IsOK() bool {
	return len(r.Findings) == 0
}

// String renders the findings for logs and CLI output.
func (r ValidationResult) String() string {
	if r.IsOK() {
		return "ok"
	}

	parts := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		parts = append(parts, f.Message)
	}

	return fmt.Sprintf("%d finding(s): %s", len(r.Findings), strings.Join(parts, "; "))
}
