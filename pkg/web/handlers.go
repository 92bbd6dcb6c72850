// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"strconv"

	"github.com/flowmate/flowmate/pkg/analytics"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/registry"
	"github.com/flowmate/flowmate/pkg/workflow"
	"github.com/gofiber/fiber/v3"
)

// DefaultExecutionsLimit caps GET /executions when no limit is given.
const DefaultExecutionsLimit = 50

type APIHandlers struct {
	repository  *workflow.Repository
	executor    *workflow.Executor
	aggregator  *analytics.Aggregator
	registry    *registry.Registry
	persistence persistence.Persistence
}

func NewAPIHandlers(
	repository *workflow.Repository,
	executor *workflow.Executor,
	aggregator *analytics.Aggregator,
	reg *registry.Registry,
	p persistence.Persistence,
) *APIHandlers {
	return &APIHandlers{
		repository:  repository,
		executor:    executor,
		aggregator:  aggregator,
		registry:    reg,
		persistence: p,
	}
}

// RegisterRoutes mounts every API endpoint on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/run", h.RunWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Delete("/", h.ClearExecutions)

	s := app.Group("/analytics")
	s.Get("/stats", h.GetStats)
	s.Get("/weekly", h.GetWeeklyStats)
	s.Get("/usage", h.GetTriggerUsage)

	app.Get("/capabilities", h.GetCapabilities)
	app.Get("/health", h.HealthCheck)
}

func respond(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repository.FetchAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, workflows)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	created, err := h.repository.Create(c.Context(), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusCreated, created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var patch workflow.UpdateRequest

	if err := c.Bind().Body(&patch); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	updated, err := h.repository.Update(c.Context(), id, patch)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.repository.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunWorkflow executes the workflow synchronously and returns its execution
// record. A failed run is still a 200; only an unknown id or a persistence
// fault is an error.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	record, err := h.executor.Run(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, record)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	return h.listExecutions(c, c.Query("workflow_id"))
}

// GetWorkflowExecutions lists the run history of one workflow. It works for
// deleted workflows too; the ledger outlives them.
func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	return h.listExecutions(c, id)
}

func (h *APIHandlers) listExecutions(c fiber.Ctx, workflowID string) error {
	opts := persistence.ListExecutionsOptions{
		WorkflowID: workflowID,
		Limit:      DefaultExecutionsLimit,
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return badRequest(c, "Invalid limit parameter")
		}

		// Zero keeps the default cap; an unbounded read is never served.
		if limit > 0 {
			opts.Limit = limit
		}
	}

	records, err := h.persistence.ExecutionRepository().List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, records)
}

func (h *APIHandlers) ClearExecutions(c fiber.Ctx) error {
	if err := h.persistence.ExecutionRepository().Clear(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetStats(c fiber.Ctx) error {
	summary, err := h.aggregator.Summarize(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, summary)
}

func (h *APIHandlers) GetWeeklyStats(c fiber.Ctx) error {
	windowDays := 0

	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 0 {
			return badRequest(c, "Invalid days parameter")
		}

		windowDays = days
	}

	activity, err := h.aggregator.DailyActivity(c.Context(), windowDays)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, activity)
}

func (h *APIHandlers) GetTriggerUsage(c fiber.Ctx) error {
	usage, err := h.aggregator.TriggerUsageByType(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, fiber.StatusOK, usage)
}

func (h *APIHandlers) GetCapabilities(c fiber.Ctx) error {
	return respond(c, fiber.StatusOK, CapabilitiesResponse{
		Triggers: h.registry.TriggerTypes(),
		Actions:  h.registry.ActionTypes(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.repository.HealthCheck(c.Context())

	status := fiber.StatusOK
	response := HealthResponse{Status: "healthy", Persistence: message}

	if !healthy {
		status = fiber.StatusServiceUnavailable
		response.Status = "unhealthy"
	}

	return c.Status(status).JSON(response)
}
