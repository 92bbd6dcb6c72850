// Package redis provides Redis-backed persistence: workflows in a hash,
// the execution ledger as a list with newest entries first.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	workflowsKey  = "flowmate:workflows"
	executionsKey = "flowmate:executions"

	// Optimistic transaction retries for RecordRun under contention.
	recordRunRetries = 10
)

// Persistence implements persistence.Persistence on top of a Redis server.
type Persistence struct {
	client        redis.UniversalClient
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence connects using a redis:// URL.
func NewPersistence(databaseURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	return &Persistence{
		client:        client,
		workflowRepo:  &WorkflowRepository{client: client},
		executionRepo: &ExecutionRepository{client: client},
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

// WorkflowRepository stores each workflow as a JSON field of a single hash.
type WorkflowRepository struct {
	client redis.UniversalClient
}

func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	values, err := wr.client.HGetAll(ctx, workflowsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(values))

	for id, raw := range values {
		var workflow models.Workflow
		if err := json.Unmarshal([]byte(raw), &workflow); err != nil {
			return nil, persistence.NewWorkflowError("GetAll", id, err)
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	raw, err := wr.client.HGet(ctx, workflowsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal([]byte(raw), &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := wr.client.HSet(ctx, workflowsKey, workflow.ID, data).Err(); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	removed, err := wr.client.HDel(ctx, workflowsKey, id).Result()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if removed == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// RecordRun runs the read-modify-write inside a WATCH transaction so
// concurrent runs of the same workflow never lose an increment.
func (wr *WorkflowRepository) RecordRun(ctx context.Context, id string, ts time.Time) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, workflowsKey, id).Result()
		if errors.Is(err, redis.Nil) {
			return persistence.ErrWorkflowNotFound
		}

		if err != nil {
			return err
		}

		var workflow models.Workflow
		if err := json.Unmarshal([]byte(raw), &workflow); err != nil {
			return err
		}

		workflow.Runs++
		lastRun := ts
		workflow.LastRun = &lastRun
		workflow.UpdatedAt = ts

		data, err := json.Marshal(&workflow)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return pipe.HSet(ctx, workflowsKey, id, data).Err()
		})

		return err
	}

	for range recordRunRetries {
		err := wr.client.Watch(ctx, txf, workflowsKey)
		if err == nil {
			return nil
		}

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return persistence.NewWorkflowError("RecordRun", id, err)
	}

	return persistence.NewWorkflowError("RecordRun", id, redis.TxFailedErr)
}

// ExecutionRepository keeps the ledger in a Redis list, newest first.
type ExecutionRepository struct {
	client redis.UniversalClient
}

func (er *ExecutionRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return &persistence.ExecutionError{Op: "Append", ExecutionID: record.ID, Err: err}
	}

	if err := er.client.LPush(ctx, executionsKey, data).Err(); err != nil {
		return &persistence.ExecutionError{Op: "Append", ExecutionID: record.ID, Err: err}
	}

	return nil
}

func (er *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) ([]*models.ExecutionRecord, error) {
	stop := int64(-1)
	if opts.Limit > 0 && opts.WorkflowID == "" {
		stop = int64(opts.Limit) - 1
	}

	values, err := er.client.LRange(ctx, executionsKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	records := make([]*models.ExecutionRecord, 0, len(values))

	for _, raw := range values {
		var record models.ExecutionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, &persistence.ExecutionError{Op: "List", Err: err}
		}

		if opts.WorkflowID != "" && record.WorkflowID != opts.WorkflowID {
			continue
		}

		records = append(records, &record)

		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}

	return records, nil
}

func (er *ExecutionRepository) Clear(ctx context.Context) error {
	if err := er.client.Del(ctx, executionsKey).Err(); err != nil {
		return &persistence.ExecutionError{Op: "Clear", Err: err}
	}

	return nil
}
