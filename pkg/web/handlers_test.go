package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	logaction "github.com/flowmate/flowmate/pkg/actions/log"
	"github.com/flowmate/flowmate/pkg/analytics"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence/memory"
	"github.com/flowmate/flowmate/pkg/registry"
	"github.com/flowmate/flowmate/pkg/triggers/manual"
	"github.com/flowmate/flowmate/pkg/web"
	"github.com/flowmate/flowmate/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	app, _ := setupTestAppWithPersistence(t)

	return app
}

func setupTestAppWithPersistence(t *testing.T) (*fiber.App, *memory.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := memory.NewPersistence()

	reg := registry.NewRegistry(logger)
	reg.RegisterTrigger(manual.NewManualTriggerFactory())
	reg.RegisterAction(logaction.NewLogActionFactory())

	repository := workflow.NewRepository(p)
	executor := workflow.NewExecutor(logger, p, reg, nil, 0)
	aggregator := analytics.NewAggregator(p)

	handlers := web.NewAPIHandlers(repository, executor, aggregator, reg, p)

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app, p
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func decodeData[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var env envelope

	require.NoError(t, json.Unmarshal(raw, &env))
	assert.True(t, env.Success)

	var data T

	require.NoError(t, json.Unmarshal(env.Data, &data))

	return data
}

func createWorkflow(t *testing.T, app *fiber.App, req web.CreateWorkflowRequest) models.Workflow {
	t.Helper()

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows/", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	return decodeData[models.Workflow](t, raw)
}

func priceAlertRequest() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		Name: "Price Alert",
		Trigger: models.CapabilityRef{
			Type:   "manual",
			Name:   "Check Price",
			Config: map[string]any{"payload": map[string]any{"price": 150.0}},
		},
		Condition: &models.Condition{Field: "price", Operator: models.OperatorGreater, Compare: "100"},
		Action:    models.CapabilityRef{Type: "log", Name: "Send Alert"},
	}
}

func TestCreateWorkflow(t *testing.T) {
	app := setupTestApp(t)

	created := createWorkflow(t, app, priceAlertRequest())

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Price Alert", created.Name)
	assert.Equal(t, models.WorkflowStatusActive, created.Status)
	assert.Equal(t, 0, created.Runs)
}

func TestCreateWorkflowValidation(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/", web.CreateWorkflowRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflows(t *testing.T) {
	app := setupTestApp(t)
	createWorkflow(t, app, priceAlertRequest())

	resp, raw := doJSON(t, app, http.MethodGet, "/workflows/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	workflows := decodeData[[]models.Workflow](t, raw)
	assert.Len(t, workflows, 1)
}

func TestGetWorkflowNotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotFoundProblemBody(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/workflows/unknown", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var problem struct {
		Type     string `json:"type"`
		Status   int    `json:"status"`
		Detail   string `json:"detail"`
		Instance string `json:"instance"`
	}

	require.NoError(t, json.Unmarshal(raw, &problem))
	assert.Equal(t, "not_found", problem.Type)
	assert.Equal(t, http.StatusNotFound, problem.Status)
	assert.Equal(t, "workflow not found", problem.Detail)
	assert.Equal(t, "/workflows/unknown", problem.Instance)
}

func TestUpdateWorkflow(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, priceAlertRequest())

	resp, raw := doJSON(t, app, http.MethodPatch, "/workflows/"+created.ID, map[string]any{
		"name":   "Renamed Alert",
		"status": "inactive",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeData[models.Workflow](t, raw)
	assert.Equal(t, "Renamed Alert", updated.Name)
	assert.Equal(t, models.WorkflowStatusInactive, updated.Status)
}

func TestDeleteWorkflow(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, priceAlertRequest())

	resp, _ := doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunWorkflow(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, priceAlertRequest())

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	record := decodeData[models.ExecutionRecord](t, raw)
	assert.Equal(t, models.ExecutionStatusSuccess, record.Status)
	assert.Equal(t, created.ID, record.WorkflowID)

	resp, raw = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fetched := decodeData[models.Workflow](t, raw)
	assert.Equal(t, 1, fetched.Runs)
}

func TestRunWorkflowNotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/unknown/run", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetExecutions(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, priceAlertRequest())

	for range 3 {
		resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, raw := doJSON(t, app, http.MethodGet, "/executions/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decodeData[[]models.ExecutionRecord](t, raw)
	assert.Len(t, records, 3)

	resp, raw = doJSON(t, app, http.MethodGet, "/executions/?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	limited := decodeData[[]models.ExecutionRecord](t, raw)
	assert.Len(t, limited, 2)
}

func TestGetExecutionsZeroLimitKeepsDefaultCap(t *testing.T) {
	app, p := setupTestAppWithPersistence(t)

	for i := 0; i < web.DefaultExecutionsLimit+5; i++ {
		record := &models.ExecutionRecord{
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusSuccess,
		}
		require.NoError(t, p.ExecutionRepository().Append(context.Background(), record))
	}

	resp, raw := doJSON(t, app, http.MethodGet, "/executions/?limit=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decodeData[[]models.ExecutionRecord](t, raw)
	assert.Len(t, records, web.DefaultExecutionsLimit)
}

func TestGetWorkflowExecutions(t *testing.T) {
	app := setupTestApp(t)
	first := createWorkflow(t, app, priceAlertRequest())

	second := priceAlertRequest()
	second.Name = "Other Alert"
	other := createWorkflow(t, app, second)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+first.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+other.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodGet, "/workflows/"+first.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decodeData[[]models.ExecutionRecord](t, raw)
	require.Len(t, records, 1)
	assert.Equal(t, first.ID, records[0].WorkflowID)
}

func TestClearExecutions(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, priceAlertRequest())

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/executions/", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodGet, "/executions/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeData[[]models.ExecutionRecord](t, raw))
}

func TestGetStats(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, priceAlertRequest())

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodGet, "/analytics/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	summary := decodeData[analytics.Summary](t, raw)
	assert.Equal(t, 1, summary.TotalWorkflows)
	assert.Equal(t, 1, summary.TotalRuns)
	assert.InDelta(t, 100.0, summary.SuccessRate, 0.001)
}

func TestGetWeeklyStats(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app, priceAlertRequest())

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodGet, "/analytics/weekly", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	activity := decodeData[[]analytics.DayActivity](t, raw)
	require.Len(t, activity, 1)
	assert.Equal(t, 1, activity[0].Success)
}

func TestGetTriggerUsage(t *testing.T) {
	app := setupTestApp(t)
	createWorkflow(t, app, priceAlertRequest())

	resp, raw := doJSON(t, app, http.MethodGet, "/analytics/usage", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	usage := decodeData[[]analytics.TriggerUsage](t, raw)
	require.Len(t, usage, 1)
	assert.Equal(t, "manual", usage[0].Trigger)
}

func TestGetCapabilities(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/capabilities", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	capabilities := decodeData[web.CapabilitiesResponse](t, raw)
	assert.Contains(t, capabilities.Triggers, "manual")
	assert.Contains(t, capabilities.Actions, "log")
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health web.HealthResponse

	require.NoError(t, json.Unmarshal(raw, &health))
	assert.Equal(t, "healthy", health.Status)
}
