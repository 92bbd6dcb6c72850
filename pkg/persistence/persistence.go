// Package persistence provides the storage abstraction for workflows and the
// execution ledger.
package persistence

import (
	"context"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
)

// ListExecutionsOptions filters and truncates ledger reads. A zero Limit means
// unbounded; callers at the external boundary apply their own default.
type ListExecutionsOptions struct {
	WorkflowID string
	Limit      int
}

// WorkflowRepository owns workflow entities. Implementations synchronize
// internally; callers never mutate stored entities directly.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	// RecordRun increments the run counter and sets the last-run timestamp.
	// The read-modify-write is atomic with respect to concurrent runs of the
	// same workflow id.
	RecordRun(ctx context.Context, id string, ts time.Time) error
}

// ExecutionRepository is the append-only, time-ordered run ledger.
type ExecutionRepository interface {
	// Append adds one record, assigning ID and Timestamp when absent.
	Append(ctx context.Context, record *models.ExecutionRecord) error

	// List returns records newest first.
	List(ctx context.Context, opts ListExecutionsOptions) ([]*models.ExecutionRecord, error)

	// Clear empties the ledger entirely.
	Clear(ctx context.Context) error
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
