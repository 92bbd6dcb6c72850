package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/google/uuid"
)

// ExecutionRepository persists ledger entries as one JSON file per record.
type ExecutionRepository struct {
	mu   sync.Mutex
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return path.Join(er.root, "executions")
}

func (er *ExecutionRepository) Append(_ context.Context, record *models.ExecutionRecord) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if err := os.MkdirAll(er.dir(), dirPerm); err != nil {
		return &persistence.ExecutionError{Op: "Append", ExecutionID: record.ID, Err: err}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &persistence.ExecutionError{Op: "Append", ExecutionID: record.ID, Err: err}
	}

	filePath := path.Join(er.dir(), record.ID+".json")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return &persistence.ExecutionError{Op: "Append", ExecutionID: record.ID, Err: err}
	}

	return nil
}

func (er *ExecutionRepository) List(_ context.Context, opts persistence.ListExecutionsOptions) ([]*models.ExecutionRecord, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	if _, err := os.Stat(er.dir()); os.IsNotExist(err) {
		return []*models.ExecutionRecord{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(er.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	records := make([]*models.ExecutionRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		data, err := os.ReadFile(path.Join(er.dir(), file))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution file %s: %w", file, err)
		}

		var record models.ExecutionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to parse execution file %s: %w", file, err)
		}

		if opts.WorkflowID != "" && record.WorkflowID != opts.WorkflowID {
			continue
		}

		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	return records, nil
}

func (er *ExecutionRepository) Clear(_ context.Context) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if _, err := os.Stat(er.dir()); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(er.dir()); err != nil {
		return &persistence.ExecutionError{Op: "Clear", Err: err}
	}

	return nil
}
