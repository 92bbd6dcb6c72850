package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/robfig/cron/v3"
)

type ScheduleTrigger struct {
	CronExpr string
	schedule cron.Schedule
	logger   *slog.Logger
}

func NewScheduleTrigger(config map[string]any, logger *slog.Logger) (*ScheduleTrigger, error) {
	cronExpr, _ := config["cron"].(string)
	if cronExpr == "" {
		return nil, errors.New("schedule trigger cron expression is required")
	}

	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	return &ScheduleTrigger{
		CronExpr: cronExpr,
		schedule: schedule,
		logger:   logger.With("module", "schedule_trigger", "cron", cronExpr),
	}, nil
}

// Observe reports where the schedule stands relative to now. Runs are still
// invoked on demand; a deployment that wants wall-clock firing wires the cron
// expression into its own scheduler loop.
func (t *ScheduleTrigger) Observe(_ context.Context) (models.Observation, error) {
	now := time.Now()
	next := t.schedule.Next(now)

	t.logger.Debug("Schedule trigger observed", "next_run", next)

	return models.Observation{
		"cron":         t.CronExpr,
		"observed_at":  now.UTC().Format(time.RFC3339),
		"next_run":     next.UTC().Format(time.RFC3339),
		"seconds_away": next.Sub(now).Seconds(),
	}, nil
}
