package manual

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManualTriggerFactory(t *testing.T) {
	factory := NewManualTriggerFactory()
	assert.Equal(t, "manual", factory.ID())

	trigger, err := factory.Create(nil, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, trigger)
}

func TestManualTriggerObserve(t *testing.T) {
	factory := NewManualTriggerFactory()

	trigger, err := factory.Create(map[string]any{
		"payload": map[string]any{
			"price":  150.0,
			"symbol": "ACME",
		},
	}, testLogger())
	require.NoError(t, err)

	observation, err := trigger.Observe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 150.0, observation["price"])
	assert.Equal(t, "ACME", observation["symbol"])
	assert.NotEmpty(t, observation["triggered_at"])
}

func TestManualTriggerObserveEmptyPayload(t *testing.T) {
	factory := NewManualTriggerFactory()

	trigger, err := factory.Create(map[string]any{}, testLogger())
	require.NoError(t, err)

	observation, err := trigger.Observe(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, observation["triggered_at"])
}
