// Package models defines the core domain models for trigger/condition/action automations.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable
	WorkflowStatusInactive WorkflowStatus = "inactive" // Kept but not meant to run
)

// CapabilityRef points at a registered trigger or action capability, together
// with the display metadata and configuration the capability receives.
type CapabilityRef struct {
	Type   string         `json:"type"             validate:"required"`
	Name   string         `json:"name"`
	Icon   string         `json:"icon,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Label returns the display name of the capability, falling back to the type
// identifier when no name was given.
func (r CapabilityRef) Label() string {
	if r.Name != "" {
		return r.Name
	}

	return r.Type
}

// Workflow is a stored automation: when (trigger) -> if (condition) -> do (action).
// Trigger and action are always present once persisted; the condition is optional.
type Workflow struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"                validate:"required"`
	Trigger   CapabilityRef  `json:"trigger"             validate:"required"`
	Condition *Condition     `json:"condition,omitempty"`
	Action    CapabilityRef  `json:"action"              validate:"required"`
	Status    WorkflowStatus `json:"status"`
	Runs      int            `json:"runs"`
	LastRun   *time.Time     `json:"last_run,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
