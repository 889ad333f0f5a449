package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/factory-report-service/internal/api/http/handlers"
	"github.com/spec-kit/factory-report-service/internal/auth"
	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/observability"
	"github.com/spec-kit/factory-report-service/internal/repository"
	"github.com/spec-kit/factory-report-service/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	creds, err := auth.HashAccounts(auth.DefaultAccounts, bcrypt.MinCost)
	require.NoError(t, err)
	sessions := repository.NewMemorySessionRepository(nil)
	tokens := auth.NewTokenManager("test-secret", 30)

	reportRepo := repository.NewMemoryReportRepository()
	dispatcher := events.NewInMemoryDispatcher()
	deps := service.ReportDependencies{
		ReportRepo: reportRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	history := service.NewHistoryService(repository.NewMemoryReportHistoryRepository(), reportRepo, logger)
	history.RegisterHandlers(dispatcher)
	authService := service.NewAuthService(service.AuthDependencies{
		CredentialRepo: repository.NewStaticCredentialRepository(creds),
		SessionRepo:    sessions,
		TokenManager:   tokens,
		Logger:         logger,
	})

	app := NewApp("factory-report-service-test", logger)
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("factory-report-service", "test", "memory", nil, nil),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Reports:        handlers.NewReportsHandler(service.NewReportService(deps), service.NewLifecycleService(deps), history),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions),
	})
	return app
}

type apiError struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, body := call(t, app, "POST", "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, fiber.StatusOK, status, string(body))
	var resp struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeReport(t *testing.T, body []byte) domain.Report {
	t.Helper()
	var report domain.Report
	require.NoError(t, json.Unmarshal(body, &report), string(body))
	return report
}

func decodeError(t *testing.T, body []byte) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "POST", "/auth/login", "", map[string]string{"username": "john", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, body).Error.Code)

	status, body = call(t, app, "POST", "/auth/login", "", map[string]string{"username": "john"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, body).Error.Code)
}

func TestReportsRequireAuth(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "GET", "/reports", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, body).Error.Code)

	status, _ = call(t, app, "GET", "/reports", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestReportWorkflowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	tech := login(t, app, "john", "tech123")
	worker := login(t, app, "mike", "worker123")

	status, body := call(t, app, "POST", "/reports", worker, map[string]any{"title": "Leak"})
	require.Equal(t, fiber.StatusBadRequest, status)
	apiErr := decodeError(t, body)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Error.Code)
	assert.ElementsMatch(t, []any{"description", "location", "latitude", "longitude", "priority"}, apiErr.Error.Details["fields"])

	status, body = call(t, app, "POST", "/reports", worker, map[string]any{
		"title": "Leak", "description": "oil leak", "location": "Bay 3",
		"latitude": 1.0, "longitude": 2.0, "priority": "Critical",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	created := decodeReport(t, body)
	assert.Equal(t, domain.ReportStatusNew, created.Status)
	assert.NotContains(t, string(body), "assignedTechnician")

	path := "/reports/" + created.ID

	status, body = call(t, app, "POST", path+"/claim", worker, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", decodeError(t, body).Error.Code)

	status, body = call(t, app, "POST", path+"/claim", tech, nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	claimed := decodeReport(t, body)
	assert.Equal(t, domain.ReportStatusInProgress, claimed.Status)
	assert.Equal(t, "John Smith", *claimed.AssignedTechnician)

	status, body = call(t, app, "PUT", path, tech, map[string]any{"status": "In Progress"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", decodeError(t, body).Error.Code)

	status, body = call(t, app, "GET", "/reports?status="+url.QueryEscape("In Progress"), worker, nil)
	require.Equal(t, fiber.StatusOK, status)
	var listed []domain.Report
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	status, _ = call(t, app, "GET", "/reports?status=Closed", worker, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = call(t, app, "GET", "/reports?sort=colour", worker, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = call(t, app, "GET", "/reports/stats", worker, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"total":1,"new":0,"inProgress":1,"resolved":0}`, string(body))

	status, body = call(t, app, "POST", path+"/reassign", tech, map[string]any{"assignedTechnician": "Sarah Johnson"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, "Sarah Johnson", *decodeReport(t, body).AssignedTechnician)

	status, body = call(t, app, "PUT", path, worker, map[string]any{"status": "Resolved"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, domain.ReportStatusResolved, decodeReport(t, body).Status)

	status, _ = call(t, app, "DELETE", path, worker, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = call(t, app, "GET", path+"/history", worker, nil)
	require.Equal(t, fiber.StatusOK, status)
	var entries []domain.ReportHistory
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, domain.ChangeTypeAssignee, entries[2].ChangeType)

	status, body = call(t, app, "DELETE", path, tech, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"success":true}`, string(body))

	status, body = call(t, app, "DELETE", path, tech, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decodeError(t, body).Error.Code)

	status, _ = call(t, app, "GET", path, tech, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSessionEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "Sarah", "tech456")

	status, body := call(t, app, "GET", "/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"id":"sarah","name":"Sarah Johnson","role":"technician"}`, string(body))

	status, body = call(t, app, "POST", "/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"success":true}`, string(body))

	status, _ = call(t, app, "GET", "/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestProbesAndMetrics(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "GET", "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), `"alive"`)

	status, body = call(t, app, "GET", "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), `"store":"memory"`)

	status, _ = call(t, app, "GET", "/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = call(t, app, "GET", "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var snap observability.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.NotEmpty(t, snap.Requests)
	assert.NotEmpty(t, snap.Errors)
}
