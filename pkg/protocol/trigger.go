// Package protocol defines the contracts between the execution engine and
// pluggable capability integrations.
package protocol

import (
	"context"
	"log/slog"

	"github.com/flowmate/flowmate/pkg/models"
)

// Trigger produces an observation when invoked. Implementations may block on
// external I/O; they must honor ctx cancellation.
type Trigger interface {
	Observe(ctx context.Context) (models.Observation, error)
}

// TriggerFactory builds configured trigger instances for a capability type.
type TriggerFactory interface {
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)
	ID() string
}
