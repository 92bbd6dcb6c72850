package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/events"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWorkflow(name string) *models.Workflow {
	return &models.Workflow{
		Name:    name,
		Trigger: models.CapabilityRef{Type: "manual", Name: "Manual"},
		Action:  models.CapabilityRef{Type: "log", Name: "Log"},
	}
}

func newTestRepository() *Repository {
	return NewRepository(memory.NewPersistence())
}

func TestRepositoryCreate(t *testing.T) {
	repo := newTestRepository()

	created, err := repo.Create(context.Background(), validWorkflow("Price Alert"))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusActive, created.Status)
	assert.Equal(t, 0, created.Runs)
	assert.Nil(t, created.LastRun)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := repo.FetchByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Price Alert", fetched.Name)
}

func TestRepositoryCreateRejectsInvalid(t *testing.T) {
	repo := newTestRepository()

	tests := []struct {
		name     string
		workflow *models.Workflow
	}{
		{
			name:     "missing name",
			workflow: &models.Workflow{Trigger: models.CapabilityRef{Type: "manual"}, Action: models.CapabilityRef{Type: "log"}},
		},
		{
			name:     "missing trigger",
			workflow: &models.Workflow{Name: "No Trigger", Action: models.CapabilityRef{Type: "log"}},
		},
		{
			name:     "missing action",
			workflow: &models.Workflow{Name: "No Action", Trigger: models.CapabilityRef{Type: "manual"}},
		},
		{
			name: "condition with unknown operator",
			workflow: &models.Workflow{
				Name:      "Bad Condition",
				Trigger:   models.CapabilityRef{Type: "manual"},
				Action:    models.CapabilityRef{Type: "log"},
				Condition: &models.Condition{Field: "price", Operator: "between", Compare: "100"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(context.Background(), tt.workflow)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestRepositoryFetchAllNewestFirst(t *testing.T) {
	repo := newTestRepository()

	first, err := repo.Create(context.Background(), validWorkflow("First"))
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	second, err := repo.Create(context.Background(), validWorkflow("Second"))
	require.NoError(t, err)

	all, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestRepositoryUpdate(t *testing.T) {
	repo := newTestRepository()

	created, err := repo.Create(context.Background(), validWorkflow("Original"))
	require.NoError(t, err)

	newName := "Renamed"
	inactive := models.WorkflowStatusInactive

	updated, err := repo.Update(context.Background(), created.ID, UpdateRequest{
		Name:   &newName,
		Status: &inactive,
		Condition: &models.Condition{
			Field:    "status",
			Operator: models.OperatorEquals,
			Compare:  "down",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.WorkflowStatusInactive, updated.Status)
	require.NotNil(t, updated.Condition)
	assert.Equal(t, "status", updated.Condition.Field)
	assert.Equal(t, created.Trigger, updated.Trigger, "unpatched fields stay untouched")
}

func TestRepositoryUpdateClearCondition(t *testing.T) {
	repo := newTestRepository()

	wf := validWorkflow("Conditional")
	wf.Condition = &models.Condition{Field: "price", Operator: models.OperatorGreater, Compare: "100"}

	created, err := repo.Create(context.Background(), wf)
	require.NoError(t, err)
	require.NotNil(t, created.Condition)

	updated, err := repo.Update(context.Background(), created.ID, UpdateRequest{ClearCondition: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Condition)
}

func TestRepositoryUpdateUnknownID(t *testing.T) {
	repo := newTestRepository()

	name := "Whatever"

	_, err := repo.Update(context.Background(), "missing", UpdateRequest{Name: &name})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestRepositoryDelete(t *testing.T) {
	repo := newTestRepository()

	created, err := repo.Create(context.Background(), validWorkflow("Doomed"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), created.ID))

	_, err = repo.FetchByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	assert.ErrorIs(t, repo.Delete(context.Background(), created.ID), ErrWorkflowNotFound)
}

type recordingPublisher struct {
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.events = append(p.events, event)

	return nil
}

func TestRepositoryPublishesLifecycleEvents(t *testing.T) {
	publisher := &recordingPublisher{}
	repo := NewRepository(memory.NewPersistence()).WithEventPublisher(publisher)

	created, err := repo.Create(context.Background(), validWorkflow("Announced"))
	require.NoError(t, err)

	name := "Renamed"

	_, err = repo.Update(context.Background(), created.ID, UpdateRequest{Name: &name})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), created.ID))

	require.Len(t, publisher.events, 3)
	assert.Equal(t, events.WorkflowCreatedEvent, publisher.events[0].GetType())
	assert.Equal(t, events.WorkflowUpdatedEvent, publisher.events[1].GetType())
	assert.Equal(t, events.WorkflowDeletedEvent, publisher.events[2].GetType())
}

func TestRepositoryHealthCheck(t *testing.T) {
	repo := newTestRepository()

	message, healthy := repo.HealthCheck(context.Background())
	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
