// Package log provides an action that writes the observation to the structured log.
package log

import (
	"context"
	"log/slog"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/protocol"
)

func NewLogActionFactory() protocol.ActionFactory {
	return &LogActionFactory{}
}

type LogActionFactory struct{}

func (f *LogActionFactory) ID() string {
	return "log"
}

func (f *LogActionFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Log Action Configuration",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message logged alongside the observation",
			},
			"level": map[string]any{
				"type": "string",
				"enum": []string{"debug", "info", "warn", "error"},
			},
		},
	}
}

func (f *LogActionFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewLogAction(config, logger), nil
}

type LogAction struct {
	message string
	level   slog.Level
	logger  *slog.Logger
}

func NewLogAction(config map[string]any, logger *slog.Logger) *LogAction {
	message, _ := config["message"].(string)
	if message == "" {
		message = "Workflow observation"
	}

	level := slog.LevelInfo

	switch config["level"] {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return &LogAction{
		message: message,
		level:   level,
		logger:  logger.With("module", "log_action"),
	}
}

func (a *LogAction) Perform(ctx context.Context, observation models.Observation) (models.ActionResult, error) {
	a.logger.Log(ctx, a.level, a.message, "observation", observation)

	return models.ActionResult{
		"logged":  true,
		"message": a.message,
	}, nil
}
