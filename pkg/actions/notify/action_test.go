package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/events"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	published []eventbus.Event
	err       error
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	if p.err != nil {
		return p.err
	}

	p.published = append(p.published, event)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyActionFactory(t *testing.T) {
	factory := NewNotifyActionFactory(&capturingPublisher{})
	assert.Equal(t, "notify", factory.ID())
}

func TestNotifyActionFactoryRequiresPublisher(t *testing.T) {
	factory := NewNotifyActionFactory(nil)

	_, err := factory.Create(map[string]any{"message": "hi"}, testLogger())
	assert.ErrorIs(t, err, ErrNoPublisher)
}

func TestNotifyActionPerform(t *testing.T) {
	publisher := &capturingPublisher{}
	factory := NewNotifyActionFactory(publisher)

	action, err := factory.Create(map[string]any{
		"title":   "Price Alert",
		"message": "price crossed the threshold",
		"level":   "critical",
	}, testLogger())
	require.NoError(t, err)

	result, err := action.Perform(context.Background(), models.Observation{"workflow_id": "wf-1"})
	require.NoError(t, err)

	assert.Equal(t, true, result["notified"])
	assert.NotEmpty(t, result["event_id"])

	require.Len(t, publisher.published, 1)

	notification, ok := publisher.published[0].(events.Notification)
	require.True(t, ok)
	assert.Equal(t, "Price Alert", notification.Title)
	assert.Equal(t, "critical", notification.Level)
	assert.Equal(t, "wf-1", notification.WorkflowID)
}

func TestNotifyActionPerformPublishFailure(t *testing.T) {
	publisher := &capturingPublisher{err: errors.New("bus unavailable")}
	factory := NewNotifyActionFactory(publisher)

	action, err := factory.Create(map[string]any{"message": "hi"}, testLogger())
	require.NoError(t, err)

	_, err = action.Perform(context.Background(), models.Observation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus unavailable")
}

func TestNotifyActionDefaultLevel(t *testing.T) {
	publisher := &capturingPublisher{}
	action := NewNotifyAction(map[string]any{"message": "hi"}, publisher, testLogger())

	_, err := action.Perform(context.Background(), models.Observation{})
	require.NoError(t, err)

	notification := publisher.published[0].(events.Notification)
	assert.Equal(t, "info", notification.Level)
}
