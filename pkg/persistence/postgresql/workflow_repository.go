package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
)

// WorkflowRepository handles workflow rows. Trigger, condition, and action are
// stored as JSONB documents.
type WorkflowRepository struct {
	db *sql.DB
}

const workflowColumns = `id, name, trigger, condition, action, status, runs, last_run, created_at, updated_at`

func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := wr.db.QueryContext(ctx, `SELECT `+workflowColumns+` FROM workflows`)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetAll", "", err)
	}
	defer rows.Close()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewWorkflowError("GetAll", "", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewWorkflowError("GetAll", "", err)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := wr.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	triggerJSON, err := json.Marshal(workflow.Trigger)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	actionJSON, err := json.Marshal(workflow.Action)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	var conditionJSON any
	if workflow.Condition != nil {
		data, err := json.Marshal(workflow.Condition)
		if err != nil {
			return persistence.NewWorkflowError("Save", workflow.ID, err)
		}

		conditionJSON = data
	}

	_, err = wr.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, trigger, condition, action, status, runs, last_run, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name       = EXCLUDED.name,
			trigger    = EXCLUDED.trigger,
			condition  = EXCLUDED.condition,
			action     = EXCLUDED.action,
			status     = EXCLUDED.status,
			runs       = EXCLUDED.runs,
			last_run   = EXCLUDED.last_run,
			updated_at = EXCLUDED.updated_at`,
		workflow.ID, workflow.Name, triggerJSON, conditionJSON, actionJSON,
		workflow.Status, workflow.Runs, workflow.LastRun, workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := wr.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// RecordRun increments atomically in the database; no read-modify-write race.
func (wr *WorkflowRepository) RecordRun(ctx context.Context, id string, ts time.Time) error {
	result, err := wr.db.ExecContext(ctx, `
		UPDATE workflows
		SET runs = runs + 1, last_run = $2, updated_at = $2
		WHERE id = $1`,
		id, ts,
	)
	if err != nil {
		return persistence.NewWorkflowError("RecordRun", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("RecordRun", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("RecordRun", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		triggerJSON   []byte
		conditionJSON []byte
		actionJSON    []byte
		lastRun       sql.NullTime
	)

	err := row.Scan(
		&workflow.ID, &workflow.Name, &triggerJSON, &conditionJSON, &actionJSON,
		&workflow.Status, &workflow.Runs, &lastRun, &workflow.CreatedAt, &workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerJSON, &workflow.Trigger); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(actionJSON, &workflow.Action); err != nil {
		return nil, err
	}

	if len(conditionJSON) > 0 {
		workflow.Condition = &models.Condition{}
		if err := json.Unmarshal(conditionJSON, workflow.Condition); err != nil {
			return nil, err
		}
	}

	if lastRun.Valid {
		workflow.LastRun = &lastRun.Time
	}

	return &workflow, nil
}
