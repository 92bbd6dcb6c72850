// Package schedule provides a cron-based trigger.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowmate/flowmate/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

func NewScheduleTriggerFactory() protocol.TriggerFactory {
	return &ScheduleTriggerFactory{}
}

type ScheduleTriggerFactory struct{}

func (f *ScheduleTriggerFactory) ID() string {
	return "schedule"
}

func (f *ScheduleTriggerFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Schedule Trigger Configuration",
		"description": "Configuration for cron-based workflow triggering",
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"description": "Cron expression defining the schedule (standard 5-field format)",
				"examples": []string{
					"0 9 * * *",    // Daily at 9 AM
					"*/15 * * * *", // Every 15 minutes
					"0 18 * * 5",   // Every Friday at 6 PM
				},
			},
		},
		"required": []string{"cron"},
	}
}

func (f *ScheduleTriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewScheduleTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule trigger: %w", err)
	}

	return trigger, nil
}
