// Package memory provides the in-process persistence implementation used as
// the default store and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/google/uuid"
)

// Persistence implements persistence.Persistence with mutex-guarded in-memory
// collections. Entities are copied at the boundary so the backing collections
// are never exposed.
type Persistence struct {
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflowRepo:  &WorkflowRepository{workflows: make(map[string]*models.Workflow)},
		executionRepo: &ExecutionRepository{},
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// WorkflowRepository stores workflows in a mutex-guarded map.
type WorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
}

func (r *WorkflowRepository) GetAll(_ context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.workflows))
	for _, workflow := range r.workflows {
		workflows = append(workflows, copyWorkflow(workflow))
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return copyWorkflow(workflow), nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.workflows[workflow.ID] = copyWorkflow(workflow)

	return nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workflows[id]; !ok {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	delete(r.workflows, id)

	return nil
}

func (r *WorkflowRepository) RecordRun(_ context.Context, id string, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return persistence.NewWorkflowError("RecordRun", id, persistence.ErrWorkflowNotFound)
	}

	workflow.Runs++
	lastRun := ts
	workflow.LastRun = &lastRun
	workflow.UpdatedAt = ts

	return nil
}

// ExecutionRepository is the in-memory append-only ledger.
type ExecutionRepository struct {
	mu      sync.RWMutex
	records []*models.ExecutionRecord
}

func (r *ExecutionRepository) Append(_ context.Context, record *models.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyRecord(record)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}

	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}

	record.ID = stored.ID
	record.Timestamp = stored.Timestamp

	r.records = append(r.records, stored)

	return nil
}

func (r *ExecutionRepository) List(_ context.Context, opts persistence.ListExecutionsOptions) ([]*models.ExecutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*models.ExecutionRecord, 0, len(r.records))

	// Appends are chronological, so walk backwards for newest first.
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if opts.WorkflowID != "" && record.WorkflowID != opts.WorkflowID {
			continue
		}

		records = append(records, copyRecord(record))

		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}

	return records, nil
}

func (r *ExecutionRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil

	return nil
}

func copyWorkflow(workflow *models.Workflow) *models.Workflow {
	copied := *workflow

	if workflow.LastRun != nil {
		lastRun := *workflow.LastRun
		copied.LastRun = &lastRun
	}

	if workflow.Condition != nil {
		condition := *workflow.Condition
		copied.Condition = &condition
	}

	copied.Trigger.Config = copyMap(workflow.Trigger.Config)
	copied.Action.Config = copyMap(workflow.Action.Config)

	return &copied
}

func copyRecord(record *models.ExecutionRecord) *models.ExecutionRecord {
	copied := *record
	copied.Result = copyMap(record.Result)

	return &copied
}

func copyMap[M ~map[string]any](m M) M {
	if m == nil {
		return nil
	}

	copied := make(M, len(m))
	for k, v := range m {
		copied[k] = v
	}

	return copied
}
