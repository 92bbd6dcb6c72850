package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/events"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/otelhelper"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRunTimeout bounds a single run when no timeout is configured.
const DefaultRunTimeout = 30 * time.Second

// Run outcome messages. Capability failure messages are propagated verbatim
// instead of these.
const (
	MessageSuccess = "workflow executed successfully"
	MessageSkipped = "skipped: condition not met"
)

// Executor orchestrates one run: fetch workflow, observe the trigger, evaluate
// the condition, perform the action, record the outcome. Each invocation
// appends exactly one ledger entry and increments the run counter once,
// regardless of success or failure.
type Executor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventPublisher
	timeout     time.Duration
	tracer      trace.Tracer
}

// NewExecutor creates an executor. eventBus may be nil when lifecycle events
// are not needed (tests, one-shot CLI runs). A non-positive timeout falls back
// to DefaultRunTimeout.
func NewExecutor(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventPublisher,
	timeout time.Duration,
) *Executor {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	return &Executor{
		logger:      logger,
		persistence: p,
		registry:    reg,
		eventBus:    eventBus,
		timeout:     timeout,
		tracer:      otel.Tracer("flowmate/workflow"),
	}
}

// Run executes the workflow with the given id. An unknown id fails with
// ErrWorkflowNotFound and writes nothing to the ledger; every other failure
// path produces a Failed execution record, so the caller always receives a
// definitive outcome.
func (e *Executor) Run(ctx context.Context, workflowID string) (*models.ExecutionRecord, error) {
	logger := e.logger.With("workflow_id", workflowID)

	wf, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		logger.Warn("Workflow lookup failed", "error", err)

		return nil, err
	}

	executionID := uuid.New().String()
	logger = logger.With("execution_id", executionID, "workflow_name", wf.Name)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.TriggerTypeKey, wf.Trigger.Type),
		attribute.String(otelhelper.ActionTypeKey, wf.Action.Type),
	)
	defer span.End()

	logger.Info("Starting workflow run")
	e.publish(ctx, logger, wf.ID, &events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, wf.ID),
		ExecutionID: executionID,
	})

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	status, message, result := e.execute(runCtx, logger, wf)

	finishedAt := time.Now()
	record := &models.ExecutionRecord{
		ID:           executionID,
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		TriggerName:  wf.Trigger.Label(),
		ActionName:   wf.Action.Label(),
		Status:       status,
		Message:      message,
		DurationMS:   finishedAt.Sub(start).Milliseconds(),
		Timestamp:    finishedAt,
		Result:       result,
	}

	// Success and failure both count as a run.
	if err := e.persistence.WorkflowRepository().RecordRun(ctx, wf.ID, finishedAt); err != nil {
		logger.Error("Failed to record run on workflow", "error", err)
	}

	if err := e.appendWithRetry(ctx, logger, record); err != nil {
		otelhelper.SetError(span, err)

		return record, fmt.Errorf("failed to persist execution record: %w", err)
	}

	switch status {
	case models.ExecutionStatusSuccess:
		logger.Info("Workflow run succeeded", "message", message, "duration_ms", record.DurationMS)
		e.publish(ctx, logger, wf.ID, &events.ExecutionFinished{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFinishedEvent, wf.ID),
			ExecutionID: executionID,
			Message:     message,
			DurationMS:  record.DurationMS,
		})
	default:
		logger.Warn("Workflow run failed", "message", message, "duration_ms", record.DurationMS)
		otelhelper.SetError(span, errors.New(message))
		e.publish(ctx, logger, wf.ID, &events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, wf.ID),
			ExecutionID: executionID,
			Error:       message,
			DurationMS:  record.DurationMS,
		})
	}

	return record, nil
}

// execute walks the trigger -> condition -> action sequence and returns the
// terminal status with its message. No store or ledger lock is held here;
// capability calls may block on external I/O.
func (e *Executor) execute(
	ctx context.Context,
	logger *slog.Logger,
	wf *models.Workflow,
) (models.ExecutionStatus, string, models.ActionResult) {
	trigger, err := e.registry.CreateTrigger(wf.Trigger.Type, wf.Trigger.Config)
	if err != nil {
		return models.ExecutionStatusFailed, err.Error(), nil
	}

	observation, err := trigger.Observe(ctx)
	if err != nil {
		return models.ExecutionStatusFailed, e.failureMessage(ctx, err), nil
	}

	logger.Debug("Trigger observed", "observation", observation)

	if wf.Condition != nil {
		holds, err := wf.Condition.Evaluate(observation)
		if err != nil {
			return models.ExecutionStatusFailed, err.Error(), nil
		}

		if !holds {
			// Completing without acting is the workflow doing its job.
			logger.Info("Condition not met, skipping action")

			return models.ExecutionStatusSuccess, MessageSkipped, nil
		}
	}

	action, err := e.registry.CreateAction(wf.Action.Type, wf.Action.Config)
	if err != nil {
		return models.ExecutionStatusFailed, err.Error(), nil
	}

	result, err := action.Perform(ctx, observation)
	if err != nil {
		return models.ExecutionStatusFailed, e.failureMessage(ctx, err), nil
	}

	return models.ExecutionStatusSuccess, MessageSuccess, result
}

// failureMessage propagates the capability error verbatim, except when the
// per-run deadline elapsed.
func (e *Executor) failureMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("run timed out after %s", e.timeout)
	}

	return err.Error()
}

// appendWithRetry appends the record, retrying once. Losing the record is the
// only unrecoverable condition of a run.
func (e *Executor) appendWithRetry(ctx context.Context, logger *slog.Logger, record *models.ExecutionRecord) error {
	ledger := e.persistence.ExecutionRepository()

	err := ledger.Append(ctx, record)
	if err == nil {
		return nil
	}

	logger.Error("Ledger append failed, retrying once", "error", err)

	return ledger.Append(ctx, record)
}

func (e *Executor) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		logger.Warn("Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}
