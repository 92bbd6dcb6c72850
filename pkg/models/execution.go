package models

import "time"

// ExecutionStatus is the terminal (or transient) state of a single run.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
	ExecutionStatusRunning ExecutionStatus = "running" // transient, never persisted
)

// ExecutionRecord is one immutable ledger entry describing the outcome of a
// single run. It references its workflow by id only; records outlive workflow
// deletion as history.
type ExecutionRecord struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name"`
	TriggerName  string          `json:"trigger_name"`
	ActionName   string          `json:"action_name"`
	Status       ExecutionStatus `json:"status"`
	Message      string          `json:"message"`
	DurationMS   int64           `json:"duration_ms"`
	Timestamp    time.Time       `json:"timestamp"`
	Result       ActionResult    `json:"result,omitempty"`
}

// Succeeded reports whether the run reached its terminal success state.
func (r *ExecutionRecord) Succeeded() bool {
	return r.Status == ExecutionStatusSuccess
}
