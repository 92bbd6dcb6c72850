// Package manual provides an on-demand trigger fed by a static payload.
package manual

import (
	"log/slog"

	"github.com/flowmate/flowmate/pkg/protocol"
)

func NewManualTriggerFactory() protocol.TriggerFactory {
	return &ManualTriggerFactory{}
}

type ManualTriggerFactory struct{}

func (f *ManualTriggerFactory) ID() string {
	return "manual"
}

func (f *ManualTriggerFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Manual Trigger Configuration",
		"description": "Configuration for on-demand triggering with an optional payload",
		"properties": map[string]any{
			"payload": map[string]any{
				"type":        "object",
				"description": "Fields copied verbatim into the observation",
			},
		},
	}
}

func (f *ManualTriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewManualTrigger(config, logger), nil
}
