package web

import "github.com/flowmate/flowmate/pkg/models"

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// CreateWorkflowRequest is the body accepted by POST /workflows.
type CreateWorkflowRequest struct {
	Name      string                `json:"name"`
	Trigger   models.CapabilityRef  `json:"trigger"`
	Condition *models.Condition     `json:"condition,omitempty"`
	Action    models.CapabilityRef  `json:"action"`
	Status    models.WorkflowStatus `json:"status,omitempty"`
}

func (r CreateWorkflowRequest) toModel() *models.Workflow {
	return &models.Workflow{
		Name:      r.Name,
		Trigger:   r.Trigger,
		Condition: r.Condition,
		Action:    r.Action,
		Status:    r.Status,
	}
}

// CapabilitiesResponse lists the registered trigger and action types.
type CapabilitiesResponse struct {
	Triggers []string `json:"triggers"`
	Actions  []string `json:"actions"`
}

// HealthResponse reports backend health for GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Persistence string `json:"persistence"`
}
