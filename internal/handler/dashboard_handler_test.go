package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/events"
	"github.com/noah-isme/teacher-dashboard-api/internal/handler"
	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	"github.com/noah-isme/teacher-dashboard-api/internal/view"
)

type stubDashboardService struct {
	payload       dto.DashboardPayload
	cacheHit      bool
	teacher       dto.TeacherStudentsResponse
	group         dto.GroupStudentsResponse
	quizzes       dto.StudentQuizDetailsResponse
	err           error
	lastTeacherID uint64
	lastRequester models.Identity
}

func (s *stubDashboardService) LoadIdentity(_ context.Context, userID uint64) (models.Identity, service.Role, error) {
	return models.Identity{ID: userID}, service.RoleAdmin, nil
}

func (s *stubDashboardService) BuildDashboard(_ context.Context, identity models.Identity) (dto.DashboardPayload, bool, error) {
	s.lastRequester = identity
	if s.err != nil {
		return dto.DashboardPayload{}, false, s.err
	}
	return s.payload, s.cacheHit, nil
}

func (s *stubDashboardService) StudentsForTeacher(_ context.Context, requester models.Identity, teacherID uint64) (dto.TeacherStudentsResponse, error) {
	s.lastRequester = requester
	s.lastTeacherID = teacherID
	if s.err != nil {
		return dto.TeacherStudentsResponse{}, s.err
	}
	return s.teacher, nil
}

func (s *stubDashboardService) GroupStudents(_ context.Context, _ models.Identity, _ uint64) (dto.GroupStudentsResponse, error) {
	if s.err != nil {
		return dto.GroupStudentsResponse{}, s.err
	}
	return s.group, nil
}

func (s *stubDashboardService) StudentQuizDetails(_ context.Context, _ models.Identity, _ uint64) (dto.StudentQuizDetailsResponse, error) {
	if s.err != nil {
		return dto.StudentQuizDetailsResponse{}, s.err
	}
	return s.quizzes, nil
}

func (s *stubDashboardService) CanViewGroup(context.Context, models.Identity, uint64) (bool, error) {
	return true, nil
}

func (s *stubDashboardService) CanViewStudent(context.Context, models.Identity, uint64) (bool, error) {
	return true, nil
}

type stubNonceIssuer struct{}

func (stubNonceIssuer) Issue(userID uint64, action string) (string, time.Time, error) {
	return "nonce-for-" + action, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), nil
}

type recordingPublisher struct {
	events []events.AccessEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.AccessEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func newDashboardApp(t *testing.T, svc service.DashboardService) *fiber.App {
	return newDashboardAppWithEvents(t, svc, nil)
}

func newDashboardAppWithEvents(t *testing.T, svc service.DashboardService, publisher events.Publisher) *fiber.App {
	t.Helper()
	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	app := fiber.New()
	inject := func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, uint64(1))
		c.Locals(middleware.LocalIdentity, models.Identity{ID: 1, DisplayName: "Ada Admin", Roles: []string{"administrator"}})
		c.Locals(middleware.LocalRole, "admin")
		return c.Next()
	}

	h := handler.NewDashboardHandler(svc, stubNonceIssuer{}, renderer, "Teacher Dashboard", zerolog.Nop())
	if publisher != nil {
		h.WithEvents(publisher)
	}
	h.RegisterPage(app, inject)
	h.Register(app.Group("/api/v2/dashboard", inject), handler.DashboardGuards{})
	return app
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestDashboardRefreshReturnsPayloadWithCacheMeta(t *testing.T) {
	svc := &stubDashboardService{
		payload: dto.DashboardPayload{
			Role:      "admin",
			Groups:    []dto.GroupSummary{{GroupID: 10, Title: "Math"}},
			Students:  []dto.StudentSummary{},
			QuizStats: []dto.QuizSummary{},
		},
		cacheHit: true,
	}
	app := newDashboardApp(t, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/data", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.True(t, payload.Success)
	require.Equal(t, true, payload.Meta["cache_hit"])

	var data dto.DashboardPayload
	require.NoError(t, json.Unmarshal(payload.Data, &data))
	require.Equal(t, "admin", data.Role)
	require.Len(t, data.Groups, 1)
	require.Equal(t, uint64(1), svc.lastRequester.ID)
}

func TestDashboardErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "access denied", err: service.ErrAccessDenied, status: fiber.StatusForbidden},
		{name: "invalid teacher", err: service.ErrInvalidTeacherID, status: fiber.StatusBadRequest},
		{name: "teacher not found", err: service.ErrTeacherNotFound, status: fiber.StatusNotFound},
		{name: "store failure", err: errors.New("dial tcp: connection refused"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newDashboardApp(t, &stubDashboardService{err: tc.err})
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/teachers/5/students", nil), -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			payload := decodeEnvelope(t, resp)
			require.False(t, payload.Success)
			require.NotContains(t, payload.Message, "connection refused")
		})
	}
}

func TestTeacherStudentsRejectsNonNumericID(t *testing.T) {
	svc := &stubDashboardService{}
	app := newDashboardApp(t, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/teachers/abc/students", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.lastTeacherID)
}

func TestTeacherStudentsJSONAndHTML(t *testing.T) {
	score := 85.0
	svc := &stubDashboardService{teacher: dto.TeacherStudentsResponse{
		TeacherID:   7,
		TeacherName: "Ms. Rivera",
		Students: []dto.StudentDetail{
			{StudentSummary: dto.StudentSummary{StudentID: 8, Name: "Sam Scored", AvgQuizScore: &score}, Tier: "good"},
		},
	}}
	app := newDashboardApp(t, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/teachers/7/students", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint64(7), svc.lastTeacherID)

	payload := decodeEnvelope(t, resp)
	var data dto.TeacherStudentsResponse
	require.NoError(t, json.Unmarshal(payload.Data, &data))
	require.Equal(t, "good", data.Students[0].Tier)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/teachers/7/students?format=html", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "Students for Ms. Rivera")
	require.Contains(t, string(body), "85.0%")
}

func TestDashboardPageEmbedsNonce(t *testing.T) {
	svc := &stubDashboardService{payload: dto.DashboardPayload{Role: "admin"}}
	app := newDashboardApp(t, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `content="nonce-for-teacher_dashboard"`)
	require.Contains(t, string(body), "Signed in as Ada Admin")
}

func TestNonceEndpoint(t *testing.T) {
	app := newDashboardApp(t, &stubDashboardService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/dashboard/nonce", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	var data dto.DashboardNonceResponse
	require.NoError(t, json.Unmarshal(payload.Data, &data))
	require.Equal(t, "nonce-for-teacher_dashboard", data.Nonce)
}

func TestGroupAndStudentDrillDowns(t *testing.T) {
	svc := &stubDashboardService{
		group:   dto.GroupStudentsResponse{Group: dto.GroupSummary{GroupID: 10, Title: "Math"}, Students: []dto.StudentDetail{}},
		quizzes: dto.StudentQuizDetailsResponse{StudentID: 20, StudentName: "Alice", Attempts: []dto.StudentQuizAttempt{}},
	}
	app := newDashboardApp(t, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/dashboard/groups/10/students", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/dashboard/students/20/quizzes", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/dashboard/students/-1/quizzes", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAccessEventsArePublishedAfterSuccessfulReads(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("nats: connection closed")}
	svc := &stubDashboardService{
		payload:  dto.DashboardPayload{Role: "admin"},
		cacheHit: true,
		teacher:  dto.TeacherStudentsResponse{TeacherID: 7, Students: []dto.StudentDetail{}},
	}
	app := newDashboardAppWithEvents(t, svc, publisher)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/data", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/teachers/7/students", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, publisher.events, 2)
	require.Equal(t, events.TypeDashboardRefreshed, publisher.events[0].Type)
	require.True(t, publisher.events[0].CacheHit)
	require.Equal(t, uint64(1), publisher.events[0].UserID)
	require.Equal(t, "admin", publisher.events[0].Role)
	require.Equal(t, events.TypeTeacherLookup, publisher.events[1].Type)
	require.Equal(t, uint64(7), publisher.events[1].TargetID)

	svc.err = service.ErrAccessDenied
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/dashboard/data", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Len(t, publisher.events, 2)
}
