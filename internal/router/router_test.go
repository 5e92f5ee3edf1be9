package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-dashboard-api/internal/config"
	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/handler"
	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/internal/repository"
	"github.com/noah-isme/teacher-dashboard-api/internal/router"
	"github.com/noah-isme/teacher-dashboard-api/internal/security"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	"github.com/noah-isme/teacher-dashboard-api/internal/testutil"
	"github.com/noah-isme/teacher-dashboard-api/internal/view"
)

const (
	sessionSecret = "session-secret"
	nonceSecret   = "nonce-secret"
)

type testServer struct {
	app    *fiber.App
	nonces *security.NonceManager
}

func newServer(t *testing.T) testServer {
	t.Helper()

	wp := testutil.NewWordPress(t, "edc_")
	wp.AddUser(1, "Ada Admin", "admin@example.com", "administrator")
	wp.AddUser(7, "Ms. Rivera", "rivera@example.com", "school_teacher")
	wp.AddUser(8, "Sam Scored", "sam@example.com", "subscriber")
	wp.AddUser(9, "Nia New", "nia@example.com", "subscriber")
	wp.AddUser(10, "Mr. Other", "other@example.com", "group_leader")
	wp.AddGroup(70, "Period 1", models.PostStatusPublished)
	wp.AddQuiz(80, "Unit Test")
	wp.AddLeader(7, 70)
	wp.AddMember(8, 70)
	wp.AddMember(9, 70)
	wp.AddQuizAttempt(8, 80, 0, true, testutil.Float(85), time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC))

	logger := zerolog.Nop()
	resolver := service.NewRoleResolver(service.DefaultRoleConfig())
	repo := repository.NewReportingRepository(wp.DB, repository.NewTables(wp.Prefix))
	reporting := service.NewReportingService(repo, resolver, logger)
	dashboard := service.NewDashboardService(reporting, resolver, validator.New(validator.WithRequiredStructEnabled()), nil, 0, logger)

	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	nonces := security.NewNonceManager(nonceSecret, time.Hour)

	cfg := config.Config{AppName: "Teacher Dashboard API", AppEnv: "test"}
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		DashboardHandler:   handler.NewDashboardHandler(dashboard, nonces, renderer, cfg.AppName, logger),
		SessionMiddleware:  middleware.SessionProtected(sessionSecret, "dashboard_session"),
		IdentityMiddleware: middleware.LoadIdentity(dashboard, logger),
		NonceMiddleware:    middleware.RequireNonce(nonces, security.ActionDashboard),
		RefreshLimiter:     middleware.RateLimit("dashboard_refresh", 100, time.Minute),
	})

	return testServer{app: app, nonces: nonces}
}

func session(t *testing.T, userID uint64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(sessionSecret))
	require.NoError(t, err)
	return token
}

func (s testServer) do(t *testing.T, method, path string, userID uint64, withNonce bool) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+session(t, userID))
	}
	if withNonce {
		nonce, _, err := s.nonces.Issue(userID, security.ActionDashboard)
		require.NoError(t, err)
		req.Header.Set(middleware.NonceHeader, nonce)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, target interface{}) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var envelope struct {
		Data json.RawMessage        `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
	return envelope.Meta
}

func TestHealthIsPublic(t *testing.T) {
	server := newServer(t)
	resp := server.do(t, http.MethodGet, "/api/v1/health", 0, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Teacher Dashboard API", resp.Header.Get("X-Application"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestRefreshRequiresSessionAndNonce(t *testing.T) {
	server := newServer(t)

	resp := server.do(t, http.MethodPost, "/api/v2/dashboard/data", 0, false)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = server.do(t, http.MethodPost, "/api/v2/dashboard/data", 7, false)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = server.do(t, http.MethodPost, "/api/v2/dashboard/data", 7, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.DashboardPayload
	meta := decodeData(t, resp, &payload)
	require.Equal(t, false, meta["cache_hit"])
	require.Equal(t, "teacher", payload.Role)
	require.Nil(t, payload.Teachers)
	require.Len(t, payload.Students, 2)
	require.Len(t, payload.QuizStats, 1)
	require.Equal(t, 1, payload.QuizStats[0].TotalAttempts)
}

func TestStudentsAreForbiddenFromDashboard(t *testing.T) {
	server := newServer(t)

	resp := server.do(t, http.MethodPost, "/api/v2/dashboard/data", 8, true)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = server.do(t, http.MethodGet, "/dashboard", 8, false)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = server.do(t, http.MethodGet, "/api/v2/dashboard/nonce", 404, false)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestTeacherLookupEndToEnd(t *testing.T) {
	server := newServer(t)

	resp := server.do(t, http.MethodPost, "/api/v2/dashboard/teachers/7/students", 7, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var lookup dto.TeacherStudentsResponse
	decodeData(t, resp, &lookup)
	require.Equal(t, "Ms. Rivera", lookup.TeacherName)
	require.Len(t, lookup.Students, 2)
	require.Equal(t, "Nia New", lookup.Students[0].Name)
	require.Equal(t, "needs_help", lookup.Students[0].Tier)
	require.Equal(t, "good", lookup.Students[1].Tier)

	resp = server.do(t, http.MethodPost, "/api/v2/dashboard/teachers/7/students", 10, true)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = server.do(t, http.MethodPost, "/api/v2/dashboard/teachers/7/students", 1, false)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = server.do(t, http.MethodPost, "/api/v2/dashboard/teachers/8/students", 1, true)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = server.do(t, http.MethodPost, "/api/v2/dashboard/teachers/7/students?format=html", 1, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "Students for Ms. Rivera")
}

func TestDashboardPageForAdmin(t *testing.T) {
	server := newServer(t)

	resp := server.do(t, http.MethodGet, "/dashboard", 1, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "Total Teachers")
	require.Contains(t, string(body), "Ms. Rivera")
	require.Contains(t, string(body), `name="dashboard-nonce"`)
}

func TestDrillDownsRespectOwnership(t *testing.T) {
	server := newServer(t)

	resp := server.do(t, http.MethodGet, "/api/v2/dashboard/groups/70/students", 7, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = server.do(t, http.MethodGet, "/api/v2/dashboard/groups/70/students", 10, false)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = server.do(t, http.MethodGet, "/api/v2/dashboard/students/8/quizzes", 7, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var details dto.StudentQuizDetailsResponse
	decodeData(t, resp, &details)
	require.Len(t, details.Attempts, 1)
	require.Equal(t, 85.0, details.Attempts[0].Score)

	resp = server.do(t, http.MethodGet, "/api/v2/dashboard/students/8/quizzes", 10, false)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRefreshContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "contracts", "dashboard_refresh.schema.json"))
	require.NoError(t, err)
	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)

	server := newServer(t)
	for _, userID := range []uint64{1, 7, 10} {
		resp := server.do(t, http.MethodPost, "/api/v2/dashboard/data", userID, true)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		var payload interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.NoError(t, schema.Validate(payload), "user %d", userID)
	}
}
