package handler

import (
	"bytes"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/events"
	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	"github.com/noah-isme/teacher-dashboard-api/internal/security"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	"github.com/noah-isme/teacher-dashboard-api/internal/utils"
	"github.com/noah-isme/teacher-dashboard-api/internal/view"
)

// NonceIssuer mints request nonces for a user.
type NonceIssuer interface {
	Issue(userID uint64, action string) (string, time.Time, error)
}

// DashboardGuards are extra handlers placed in front of state-refreshing routes.
type DashboardGuards struct {
	Nonce        fiber.Handler
	RefreshLimit fiber.Handler
}

// DashboardHandler serves the dashboard page and its JSON endpoints.
type DashboardHandler struct {
	service  service.DashboardService
	nonces   NonceIssuer
	renderer *view.Renderer
	title    string
	events   events.Publisher
	logger   zerolog.Logger
}

// NewDashboardHandler creates a new handler instance.
func NewDashboardHandler(service service.DashboardService, nonces NonceIssuer, renderer *view.Renderer, title string, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:  service,
		nonces:   nonces,
		renderer: renderer,
		title:    title,
		logger:   logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// WithEvents publishes an access event after every successful read.
func (h *DashboardHandler) WithEvents(publisher events.Publisher) *DashboardHandler {
	h.events = publisher
	return h
}

// RegisterPage attaches the HTML dashboard page behind the given guards.
func (h *DashboardHandler) RegisterPage(router fiber.Router, guards ...fiber.Handler) {
	router.Get("/dashboard", withGuards(guards, h.page)...)
}

// Register attaches the JSON endpoints.
func (h *DashboardHandler) Register(router fiber.Router, guards DashboardGuards) {
	router.Get("/nonce", h.issueNonce)
	router.Post("/data", withGuards([]fiber.Handler{guards.RefreshLimit, guards.Nonce}, h.refresh)...)
	router.Post("/teachers/:id/students", withGuards([]fiber.Handler{guards.Nonce}, h.teacherStudents)...)
	router.Get("/groups/:id/students", h.groupStudents)
	router.Get("/students/:id/quizzes", h.studentQuizzes)
}

func (h *DashboardHandler) page(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	payload, cacheHit, err := h.service.BuildDashboard(c.UserContext(), identity)
	if err != nil {
		return h.fail(c, err, "failed to load dashboard")
	}

	nonce, _, err := h.nonces.Issue(identity.ID, security.ActionDashboard)
	if err != nil {
		return h.fail(c, err, "failed to load dashboard")
	}

	var buf bytes.Buffer
	if err := h.renderer.Dashboard(&buf, view.DashboardPage{
		Title:    h.title,
		UserName: identity.DisplayName,
		Nonce:    nonce,
		Payload:  payload,
	}); err != nil {
		return h.fail(c, err, "failed to render dashboard")
	}

	h.publish(c, events.AccessEvent{Type: events.TypeDashboardViewed, CacheHit: cacheHit})
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *DashboardHandler) issueNonce(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	nonce, expiresAt, err := h.nonces.Issue(identity.ID, security.ActionDashboard)
	if err != nil {
		return h.fail(c, err, "failed to issue nonce")
	}

	return utils.SendSuccess(c, "nonce issued", dto.DashboardNonceResponse{Nonce: nonce, ExpiresAt: expiresAt})
}

func (h *DashboardHandler) refresh(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	payload, cacheHit, err := h.service.BuildDashboard(c.UserContext(), identity)
	if err != nil {
		return h.fail(c, err, "failed to load dashboard data")
	}

	h.publish(c, events.AccessEvent{Type: events.TypeDashboardRefreshed, CacheHit: cacheHit})
	return utils.OK(c, payload, "dashboard data retrieved", fiber.Map{"cache_hit": cacheHit})
}

func (h *DashboardHandler) teacherStudents(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	teacherID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid teacher id", fiber.Map{"field": "teacher_id"})
	}

	response, err := h.service.StudentsForTeacher(c.UserContext(), identity, teacherID)
	if err != nil {
		return h.fail(c, err, "failed to load teacher students")
	}
	h.publish(c, events.AccessEvent{Type: events.TypeTeacherLookup, TargetID: teacherID})

	if c.Query("format") == "html" {
		var buf bytes.Buffer
		if err := h.renderer.TeacherStudents(&buf, response); err != nil {
			return h.fail(c, err, "failed to render teacher students")
		}
		c.Type("html", "utf-8")
		return c.Send(buf.Bytes())
	}

	return utils.SendSuccess(c, "teacher students retrieved", response)
}

func (h *DashboardHandler) groupStudents(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid group id", fiber.Map{"field": "group_id"})
	}

	response, err := h.service.GroupStudents(c.UserContext(), identity, groupID)
	if err != nil {
		return h.fail(c, err, "failed to load group students")
	}
	h.publish(c, events.AccessEvent{Type: events.TypeGroupViewed, TargetID: groupID})

	return utils.SendSuccess(c, "group students retrieved", response)
}

func (h *DashboardHandler) studentQuizzes(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid student id", fiber.Map{"field": "student_id"})
	}

	response, err := h.service.StudentQuizDetails(c.UserContext(), identity, studentID)
	if err != nil {
		return h.fail(c, err, "failed to load student quizzes")
	}
	h.publish(c, events.AccessEvent{Type: events.TypeStudentViewed, TargetID: studentID})

	return utils.SendSuccess(c, "student quizzes retrieved", response)
}

// publish fills the requester fields; delivery failures never fail the request.
func (h *DashboardHandler) publish(c *fiber.Ctx, event events.AccessEvent) {
	if h.events == nil {
		return
	}
	event.UserID = middleware.UserIDFromContext(c)
	event.Role, _ = c.Locals(middleware.LocalRole).(string)
	event.CorrelationID = middleware.GetCorrelationID(c)
	if err := h.events.Publish(c.UserContext(), event); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("event", event.Type).Msg("failed to publish access event")
	}
}

// fail maps service errors to responses; unexpected errors are logged and hidden.
func (h *DashboardHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrInvalidTeacherID),
		errors.Is(err, service.ErrInvalidGroupID),
		errors.Is(err, service.ErrInvalidStudentID):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, service.ErrTeacherNotFound),
		errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	}

	requestLogger(h.logger, c).Error().Err(err).
		Uint64("user_id", middleware.UserIDFromContext(c)).
		Str("path", c.Path()).
		Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}
