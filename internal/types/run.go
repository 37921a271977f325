package types

import "time"

// RunStatus is the lifecycle state of an evaluation run.
type RunStatus string

const (
	// RunStatusIdle means no run has been scheduled.
	RunStatusIdle RunStatus = "idle"
	// RunStatusScheduled means the graph snapshot was taken and the
	// topological order computed.
	RunStatusScheduled RunStatus = "scheduled"
	// RunStatusRunning means ticks are being processed.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted means the run finished, possibly with faults or a
	// cancellation marker.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed means validation rejected the graph before scheduling.
	RunStatusFailed RunStatus = "failed"
)

// NodeFault records one isolated runtime fault. A fault degrades the faulty
// node's outputs to neutral values for the tick; it never aborts the run.
type NodeFault struct {
	NodeID string    `json:"nodeId"`
	Time   time.Time `json:"time"`
	Cause  string    `json:"cause"`
}

// RunResult is the outcome of one evaluation run: the full signal sequence in
// emission order plus every accumulated node fault. Cancelled is set when the
// run was stopped cooperatively at a tick boundary; the signals emitted so far
// are still returned and the status is still Completed.
type RunResult struct {
	Status    RunStatus   `json:"status"`
	Signals   []Signal    `json:"signals"`
	Faults    []NodeFault `json:"faults"`
	Cancelled bool        `json:"cancelled"`
	Ticks     int         `json:"ticks"`
}

// HasFaults reports whether the run completed with warnings.
func (r *RunResult) HasFaults() bool {
	return len(r.Faults) > 0
}
