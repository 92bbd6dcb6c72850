package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/google/uuid"
)

// ExecutionRepository handles the append-only executions table.
type ExecutionRepository struct {
	db *sql.DB
}

func (er *ExecutionRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	var resultJSON any
	if record.Result != nil {
		data, err := json.Marshal(record.Result)
		if err != nil {
			return &persistence.ExecutionError{Op: "Append", ExecutionID: record.ID, Err: err}
		}

		resultJSON = data
	}

	_, err := er.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, workflow_name, trigger_name, action_name, status, message, duration_ms, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.WorkflowID, record.WorkflowName, record.TriggerName, record.ActionName,
		record.Status, record.Message, record.DurationMS, resultJSON, record.Timestamp,
	)
	if err != nil {
		return &persistence.ExecutionError{Op: "Append", ExecutionID: record.ID, Err: err}
	}

	return nil
}

func (er *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, workflow_id, workflow_name, trigger_name, action_name, status, message, duration_ms, result, created_at
		FROM executions`

	args := make([]any, 0, 2)

	if opts.WorkflowID != "" {
		query += ` WHERE workflow_id = $1`

		args = append(args, opts.WorkflowID)
	}

	query += ` ORDER BY created_at DESC`

	if opts.Limit > 0 {
		if opts.WorkflowID != "" {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}

		args = append(args, opts.Limit)
	}

	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &persistence.ExecutionError{Op: "List", Err: err}
	}
	defer rows.Close()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		var (
			record     models.ExecutionRecord
			resultJSON []byte
		)

		err := rows.Scan(
			&record.ID, &record.WorkflowID, &record.WorkflowName, &record.TriggerName,
			&record.ActionName, &record.Status, &record.Message, &record.DurationMS,
			&resultJSON, &record.Timestamp,
		)
		if err != nil {
			return nil, &persistence.ExecutionError{Op: "List", Err: err}
		}

		if len(resultJSON) > 0 {
			if err := json.Unmarshal(resultJSON, &record.Result); err != nil {
				return nil, &persistence.ExecutionError{Op: "List", ExecutionID: record.ID, Err: err}
			}
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.ExecutionError{Op: "List", Err: err}
	}

	return records, nil
}

func (er *ExecutionRepository) Clear(ctx context.Context) error {
	if _, err := er.db.ExecContext(ctx, `DELETE FROM executions`); err != nil {
		return &persistence.ExecutionError{Op: "Clear", Err: err}
	}

	return nil
}
