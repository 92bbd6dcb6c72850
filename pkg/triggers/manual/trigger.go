package manual

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
)

type ManualTrigger struct {
	payload map[string]any
	logger  *slog.Logger
}

func NewManualTrigger(config map[string]any, logger *slog.Logger) *ManualTrigger {
	payload, _ := config["payload"].(map[string]any)

	return &ManualTrigger{
		payload: payload,
		logger:  logger.With("module", "manual_trigger"),
	}
}

// Observe copies the configured payload into the observation so conditions and
// actions can reference it.
func (t *ManualTrigger) Observe(_ context.Context) (models.Observation, error) {
	observation := models.Observation{
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
	}

	for key, value := range t.payload {
		observation[key] = value
	}

	t.logger.Debug("Manual trigger observed", "fields", len(observation))

	return observation, nil
}
