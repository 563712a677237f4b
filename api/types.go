// ABOUTME: Domain types mirrored from the orchestrator REST API: runs, lifecycle states, metric samples.
// ABOUTME: Lifecycle predicates (IsActive/IsTerminal) gate streaming vs. historical fetch decisions.
package api

// RunStatus is the orchestrator's run lifecycle state.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSuccess   RunStatus = "SUCCESS"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

// IsActive reports whether the run is still producing output. Only active
// runs have live streams worth subscribing to.
func (s RunStatus) IsActive() bool {
	return s == RunPending || s == RunRunning
}

// IsTerminal reports whether the run has reached a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunSuccess || s == RunFailed || s == RunCancelled
}

// Run is a single pipeline execution as reported by the orchestrator.
type Run struct {
	ID        string    `json:"id"`
	Pipeline  string    `json:"pipeline"`
	Status    RunStatus `json:"status"`
	CreatedAt string    `json:"created_at,omitempty"`
	StartedAt string    `json:"started_at,omitempty"`
	EndedAt   string    `json:"ended_at,omitempty"`
}

// MetricSample is one resource usage reading for a run. Timestamp is an
// ISO-8601 string as delivered on the wire; it is displayed, not computed
// with, so it stays a string.
type MetricSample struct {
	Timestamp         string   `json:"timestamp"`
	CPUPercent        float64  `json:"cpu_percent"`
	RAMMb             float64  `json:"ram_mb"`
	RAMLimitMb        *float64 `json:"ram_limit_mb,omitempty"`
	SoftLimitExceeded bool     `json:"soft_limit_exceeded,omitempty"`
}
