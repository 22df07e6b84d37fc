package synckit

import "time"

// NodeStatus represents the execution state of a node within a run.
type NodeStatus string

const (
	StatusPending          NodeStatus = "pending"
	StatusRunning          NodeStatus = "running"
	StatusSuccess          NodeStatus = "success"
	StatusFailed           NodeStatus = "failed"
	StatusSkippedCached    NodeStatus = "skipped-cached"
	StatusSkippedDepFailed NodeStatus = "skipped-dependency-failed"
	StatusCancelled        NodeStatus = "cancelled"
)

// Terminal reports whether the status is final for this run.
func (s NodeStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkippedCached, StatusSkippedDepFailed, StatusCancelled:
		return true
	}
	return false
}

// BlocksDependents reports whether a node in this state prevents its
// descendants from executing.
func (s NodeStatus) BlocksDependents() bool {
	switch s {
	case StatusFailed, StatusCancelled, StatusSkippedDepFailed:
		return true
	}
	return false
}

// NodeResult records one node's outcome within a run.
type NodeResult struct {
	NodeID      string         `json:"node_id"`
	Type        string         `json:"type"`
	Status      NodeStatus     `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Cached      bool           `json:"cached,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Duration is the node's wall-clock execution time.
func (r NodeResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// ExecutionResult is the immutable report assembled after a run.
// Success is true iff every node ended success or skipped-cached.
type ExecutionResult struct {
	RunID       string        `json:"run_id"`
	Success     bool          `json:"success"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration_ns"`
	TotalNodes  int           `json:"total_nodes"`
	Completed   int           `json:"completed_nodes"`
	Failed      int           `json:"failed_nodes"`
	Skipped     int           `json:"skipped_nodes"`
	Cached      int           `json:"cached_nodes"`
	Nodes       []NodeResult  `json:"nodes"` // ordered by completion time
}

// NewRunRecord summarizes an execution result for run history.
func NewRunRecord(workflowName string, res *ExecutionResult) *RunRecord {
	status := "failed"
	if res.Success {
		status = "success"
	}
	completed := res.CompletedAt
	return &RunRecord{
		ID:           res.RunID,
		WorkflowName: workflowName,
		Status:       status,
		TotalNodes:   res.TotalNodes,
		Failed:       res.Failed,
		Cached:       res.Cached,
		StartedAt:    res.StartedAt,
		CompletedAt:  &completed,
	}
}

// RunRecord captures a single workflow execution for run history.
type RunRecord struct {
	ID           string     `json:"id"`
	WorkflowName string     `json:"workflow_name"`
	Status       string     `json:"status"` // "success" | "failed"
	TotalNodes   int        `json:"total_nodes"`
	Failed       int        `json:"failed_nodes"`
	Cached       int        `json:"cached_nodes"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
