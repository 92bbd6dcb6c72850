// Package notify provides an action that publishes a notification event on the
// event bus so external consumers can deliver it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/events"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/protocol"
)

var ErrNoPublisher = errors.New("notify action requires an event publisher")

func NewNotifyActionFactory(publisher eventbus.EventPublisher) protocol.ActionFactory {
	return &NotifyActionFactory{publisher: publisher}
}

type NotifyActionFactory struct {
	publisher eventbus.EventPublisher
}

func (f *NotifyActionFactory) ID() string {
	return "notify"
}

func (f *NotifyActionFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Notify Action Configuration",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Notification headline",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Notification body",
			},
			"level": map[string]any{
				"type": "string",
				"enum": []string{"info", "warning", "critical"},
			},
		},
		"required": []string{"message"},
	}
}

func (f *NotifyActionFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Action, error) {
	if f.publisher == nil {
		return nil, ErrNoPublisher
	}

	if config == nil {
		config = map[string]any{}
	}

	return NewNotifyAction(config, f.publisher, logger), nil
}

type NotifyAction struct {
	title     string
	message   string
	level     string
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewNotifyAction(config map[string]any, publisher eventbus.EventPublisher, logger *slog.Logger) *NotifyAction {
	title, _ := config["title"].(string)
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &NotifyAction{
		title:     title,
		message:   message,
		level:     level,
		publisher: publisher,
		logger:    logger.With("module", "notify_action"),
	}
}

func (a *NotifyAction) Perform(ctx context.Context, observation models.Observation) (models.ActionResult, error) {
	workflowID, _ := observation["workflow_id"].(string)

	notification := events.Notification{
		BaseEvent: events.NewBaseEvent(events.NotificationEvent, workflowID),
		Title:     a.title,
		Message:   a.message,
		Level:     a.level,
	}

	if err := a.publisher.Publish(ctx, workflowID, notification); err != nil {
		return nil, fmt.Errorf("failed to publish notification: %w", err)
	}

	a.logger.Info("Notification published", "title", a.title, "level", a.level)

	return models.ActionResult{
		"notified": true,
		"event_id": notification.ID,
	}, nil
}
