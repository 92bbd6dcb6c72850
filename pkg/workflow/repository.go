// Package workflow contains the workflow store service and the execution engine.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/events"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Repository owns workflow identity and lifecycle on top of a persistence
// backend: validation, id assignment, default values, and timestamps.
type Repository struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	eventBus    eventbus.EventPublisher
}

func NewRepository(p persistence.Persistence) *Repository {
	return &Repository{
		persistence: p,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithEventPublisher makes the repository announce create/update/delete on the
// bus. Publishing is best effort; a bus failure never fails the operation.
func (r *Repository) WithEventPublisher(publisher eventbus.EventPublisher) *Repository {
	r.eventBus = publisher

	return r
}

func (r *Repository) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.eventBus == nil {
		return
	}

	_ = r.eventBus.Publish(ctx, key, event)
}

// HealthCheck checks the health of the persistence layer.
func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create validates the definition, assigns identity and defaults, and persists it.
func (r *Repository) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if err := r.validateDefinition(workflow); err != nil {
		return nil, err
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusActive
	}

	workflow.Runs = 0
	workflow.LastRun = nil

	now := time.Now()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := r.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, err
	}

	r.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID),
		Name:      workflow.Name,
	})

	return workflow, nil
}

// FetchAll returns all workflows in reverse-creation order, most recent first.
func (r *Repository) FetchAll(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := r.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// FetchByID returns the workflow or an error wrapping ErrWorkflowNotFound.
func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.persistence.WorkflowRepository().GetByID(ctx, id)
}

// UpdateRequest carries a partial edit; nil fields are left untouched.
type UpdateRequest struct {
	Name      *string                `json:"name,omitempty"`
	Trigger   *models.CapabilityRef  `json:"trigger,omitempty"`
	Condition *models.Condition      `json:"condition,omitempty"`
	Action    *models.CapabilityRef  `json:"action,omitempty"`
	Status    *models.WorkflowStatus `json:"status,omitempty"`

	// ClearCondition removes the condition; Condition wins if both are set.
	ClearCondition bool `json:"clear_condition,omitempty"`
}

// Update merges the patch into the stored workflow and refreshes UpdatedAt.
func (r *Repository) Update(ctx context.Context, id string, patch UpdateRequest) (*models.Workflow, error) {
	existing, err := r.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		existing.Name = *patch.Name
	}

	if patch.Trigger != nil {
		existing.Trigger = *patch.Trigger
	}

	if patch.Action != nil {
		existing.Action = *patch.Action
	}

	if patch.Status != nil {
		existing.Status = *patch.Status
	}

	switch {
	case patch.Condition != nil:
		existing.Condition = patch.Condition
	case patch.ClearCondition:
		existing.Condition = nil
	}

	if err := r.validateDefinition(existing); err != nil {
		return nil, err
	}

	existing.UpdatedAt = time.Now()

	if err := r.persistence.WorkflowRepository().Save(ctx, existing); err != nil {
		return nil, err
	}

	r.publish(ctx, existing.ID, events.WorkflowUpdated{
		BaseEvent: events.NewBaseEvent(events.WorkflowUpdatedEvent, existing.ID),
		Name:      existing.Name,
	})

	return existing, nil
}

// Delete removes the workflow. Ledger entries referencing it are left intact
// as immutable history.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.persistence.WorkflowRepository().Delete(ctx, id); err != nil {
		return err
	}

	r.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id),
	})

	return nil
}

// RecordRun increments the run counter and sets the last-run timestamp. The
// backend guarantees atomicity against concurrent runs of the same workflow.
func (r *Repository) RecordRun(ctx context.Context, id string, ts time.Time) error {
	return r.persistence.WorkflowRepository().RecordRun(ctx, id, ts)
}

func (r *Repository) validateDefinition(workflow *models.Workflow) error {
	if err := r.validate.Struct(workflow); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	if workflow.Condition != nil {
		if err := r.validate.Struct(workflow.Condition); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
		}
	}

	return nil
}
