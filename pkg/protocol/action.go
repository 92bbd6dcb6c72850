package protocol

import (
	"context"
	"log/slog"

	"github.com/flowmate/flowmate/pkg/models"
)

// Action performs the workflow's effect, given the observation the trigger
// produced. Failures must carry a human-readable message; the engine records
// it verbatim.
type Action interface {
	Perform(ctx context.Context, observation models.Observation) (models.ActionResult, error)
}

// ActionFactory builds configured action instances for a capability type.
type ActionFactory interface {
	Create(config map[string]any, logger *slog.Logger) (Action, error)
	ID() string
}

// ConfigSchemaProvider is optionally implemented by factories that publish a
// JSON schema for their configuration. The registry validates configs against
// it before Create is called.
type ConfigSchemaProvider interface {
	ConfigSchema() map[string]any
}
