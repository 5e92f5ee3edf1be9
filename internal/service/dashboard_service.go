package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/internal/observability"
)

// DashboardService assembles role-shaped dashboard payloads and guards drill-down lookups.
type DashboardService interface {
	LoadIdentity(ctx context.Context, userID uint64) (models.Identity, Role, error)
	BuildDashboard(ctx context.Context, identity models.Identity) (dto.DashboardPayload, bool, error)
	StudentsForTeacher(ctx context.Context, requester models.Identity, teacherID uint64) (dto.TeacherStudentsResponse, error)
	GroupStudents(ctx context.Context, requester models.Identity, groupID uint64) (dto.GroupStudentsResponse, error)
	StudentQuizDetails(ctx context.Context, requester models.Identity, studentID uint64) (dto.StudentQuizDetailsResponse, error)
	CanViewGroup(ctx context.Context, identity models.Identity, groupID uint64) (bool, error)
	CanViewStudent(ctx context.Context, identity models.Identity, studentID uint64) (bool, error)
}

type dashboardService struct {
	reporting ReportingService
	resolver  *RoleResolver
	validator *validator.Validate
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDashboardService builds the dashboard assembler. A nil cache or a non-positive
// ttl disables payload caching.
func NewDashboardService(reporting ReportingService, resolver *RoleResolver, validator *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		reporting: reporting,
		resolver:  resolver,
		validator: validator,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "dashboard_service").Logger(),
		now:       time.Now,
	}
}

func (s *dashboardService) LoadIdentity(ctx context.Context, userID uint64) (models.Identity, Role, error) {
	identity, err := s.reporting.Identity(ctx, userID)
	if err != nil {
		return models.Identity{}, RoleNone, err
	}
	return identity, s.resolver.Resolve(identity), nil
}

func (s *dashboardService) BuildDashboard(ctx context.Context, identity models.Identity) (dto.DashboardPayload, bool, error) {
	scope := s.resolver.ScopeFor(identity)
	if scope.IsNone() {
		return dto.DashboardPayload{}, false, ErrAccessDenied
	}

	cacheKey := fmt.Sprintf("dashboard:%s:%d", scope.Role, identity.ID)
	tracer := otel.Tracer("github.com/noah-isme/teacher-dashboard-api/internal/service/dashboard")
	ctx, span := tracer.Start(ctx, "dashboard.build")
	span.SetAttributes(
		attribute.String("dashboard.role", string(scope.Role)),
		attribute.String("dashboard.cache_key", cacheKey),
	)
	defer span.End()

	if payload, ok := s.readCache(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
		observability.DashboardBuilds().WithLabelValues(string(scope.Role), "hit").Inc()
		return payload, true, nil
	}

	started := s.now()
	payload, err := s.assemble(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dashboard_build_failed")
		return dto.DashboardPayload{}, false, err
	}
	observability.DashboardBuildDuration().WithLabelValues(string(scope.Role)).Observe(s.now().Sub(started).Seconds())
	observability.DashboardBuilds().WithLabelValues(string(scope.Role), "miss").Inc()

	span.SetAttributes(
		attribute.Int("dashboard.groups", len(payload.Groups)),
		attribute.Int("dashboard.students", len(payload.Students)),
		attribute.Int("dashboard.quizzes", len(payload.QuizStats)),
	)

	s.writeCache(ctx, cacheKey, payload)
	return payload, false, nil
}

// assemble runs the independent aggregate reads concurrently; the first failure cancels the rest.
func (s *dashboardService) assemble(ctx context.Context, scope Scope) (dto.DashboardPayload, error) {
	var (
		teachers []dto.TeacherSummary
		groups   []dto.GroupSummary
		students []dto.StudentSummary
		quizzes  []dto.QuizSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	if scope.IsAdmin() {
		g.Go(func() error {
			var err error
			teachers, err = s.reporting.ListTeachers(gctx, scope)
			return err
		})
	}
	g.Go(func() error {
		var err error
		groups, err = s.reporting.ListGroups(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		students, err = s.reporting.ListStudents(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		quizzes, err = s.reporting.QuizStatistics(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return dto.DashboardPayload{}, fmt.Errorf("build dashboard: %w", err)
	}

	distinct := make(map[uint64]struct{}, len(students))
	for _, student := range students {
		distinct[student.StudentID] = struct{}{}
	}

	payload := dto.DashboardPayload{
		Role: string(scope.Role),
		Summary: dto.DashboardSummary{
			TotalGroups:   len(groups),
			TotalStudents: len(distinct),
			ActiveQuizzes: len(quizzes),
		},
		Groups:    groups,
		Students:  students,
		QuizStats: quizzes,
	}
	if scope.IsAdmin() {
		total := len(teachers)
		payload.Summary.TotalTeachers = &total
		payload.Teachers = &teachers
	}
	return payload, nil
}

func (s *dashboardService) readCache(ctx context.Context, key string) (dto.DashboardPayload, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return dto.DashboardPayload{}, false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to read dashboard cache")
		}
		return dto.DashboardPayload{}, false
	}

	var payload dto.DashboardPayload
	if err := json.Unmarshal([]byte(cached), &payload); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("discarding unreadable dashboard cache entry")
		return dto.DashboardPayload{}, false
	}
	return payload, true
}

func (s *dashboardService) writeCache(ctx context.Context, key string, payload dto.DashboardPayload) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode dashboard cache entry")
		return
	}
	if err := s.cache.Set(ctx, key, encoded, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to store dashboard cache")
	}
}

func (s *dashboardService) StudentsForTeacher(ctx context.Context, requester models.Identity, teacherID uint64) (dto.TeacherStudentsResponse, error) {
	if err := s.validator.Struct(dto.TeacherStudentsRequest{TeacherID: teacherID}); err != nil {
		return dto.TeacherStudentsResponse{}, ErrInvalidTeacherID
	}

	switch s.resolver.Resolve(requester) {
	case RoleAdmin:
	case RoleTeacher:
		if requester.ID != teacherID {
			return dto.TeacherStudentsResponse{}, ErrAccessDenied
		}
	default:
		return dto.TeacherStudentsResponse{}, ErrAccessDenied
	}

	teacher, err := s.reporting.Identity(ctx, teacherID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return dto.TeacherStudentsResponse{}, ErrTeacherNotFound
		}
		return dto.TeacherStudentsResponse{}, err
	}
	if s.resolver.Resolve(teacher) != RoleTeacher {
		return dto.TeacherStudentsResponse{}, ErrTeacherNotFound
	}

	students, err := s.reporting.ListStudents(ctx, TeacherScope(teacherID))
	if err != nil {
		return dto.TeacherStudentsResponse{}, err
	}

	return dto.TeacherStudentsResponse{
		TeacherID:   teacher.ID,
		TeacherName: teacher.DisplayName,
		Students:    withTiers(students, nil),
	}, nil
}

func (s *dashboardService) GroupStudents(ctx context.Context, requester models.Identity, groupID uint64) (dto.GroupStudentsResponse, error) {
	if groupID == 0 {
		return dto.GroupStudentsResponse{}, ErrInvalidGroupID
	}

	allowed, err := s.CanViewGroup(ctx, requester, groupID)
	if err != nil {
		return dto.GroupStudentsResponse{}, err
	}
	if !allowed {
		return dto.GroupStudentsResponse{}, ErrAccessDenied
	}

	scope := s.resolver.ScopeFor(requester)
	groups, err := s.reporting.ListGroups(ctx, scope)
	if err != nil {
		return dto.GroupStudentsResponse{}, err
	}

	var (
		group dto.GroupSummary
		found bool
	)
	for _, candidate := range groups {
		if candidate.GroupID == groupID {
			group, found = candidate, true
			break
		}
	}
	if !found {
		return dto.GroupStudentsResponse{}, ErrGroupNotFound
	}

	students, err := s.reporting.ListStudents(ctx, scope)
	if err != nil {
		return dto.GroupStudentsResponse{}, err
	}

	return dto.GroupStudentsResponse{
		Group: group,
		Students: withTiers(students, func(row dto.StudentSummary) bool {
			return row.GroupID == groupID
		}),
	}, nil
}

func (s *dashboardService) StudentQuizDetails(ctx context.Context, requester models.Identity, studentID uint64) (dto.StudentQuizDetailsResponse, error) {
	if studentID == 0 {
		return dto.StudentQuizDetailsResponse{}, ErrInvalidStudentID
	}

	allowed, err := s.CanViewStudent(ctx, requester, studentID)
	if err != nil {
		return dto.StudentQuizDetailsResponse{}, err
	}
	if !allowed {
		return dto.StudentQuizDetailsResponse{}, ErrAccessDenied
	}

	student, err := s.reporting.Identity(ctx, studentID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return dto.StudentQuizDetailsResponse{}, ErrStudentNotFound
		}
		return dto.StudentQuizDetailsResponse{}, err
	}
	if !s.resolver.IsStudent(student) {
		return dto.StudentQuizDetailsResponse{}, ErrStudentNotFound
	}

	attempts, err := s.reporting.StudentQuizAttempts(ctx, studentID)
	if err != nil {
		return dto.StudentQuizDetailsResponse{}, err
	}

	return dto.StudentQuizDetailsResponse{
		StudentID:   student.ID,
		StudentName: student.DisplayName,
		Attempts:    attempts,
	}, nil
}

func (s *dashboardService) CanViewGroup(ctx context.Context, identity models.Identity, groupID uint64) (bool, error) {
	switch s.resolver.Resolve(identity) {
	case RoleAdmin:
		return true, nil
	case RoleTeacher:
		return s.reporting.LeadsGroup(ctx, identity.ID, groupID)
	default:
		return false, nil
	}
}

func (s *dashboardService) CanViewStudent(ctx context.Context, identity models.Identity, studentID uint64) (bool, error) {
	switch s.resolver.Resolve(identity) {
	case RoleAdmin:
		return true, nil
	case RoleTeacher:
		return s.reporting.TeachesStudent(ctx, identity.ID, studentID)
	default:
		return false, nil
	}
}

// withTiers attaches performance tiers to the rows accepted by keep (all rows when nil).
func withTiers(rows []dto.StudentSummary, keep func(dto.StudentSummary) bool) []dto.StudentDetail {
	details := make([]dto.StudentDetail, 0, len(rows))
	for _, row := range rows {
		if keep != nil && !keep(row) {
			continue
		}
		details = append(details, dto.StudentDetail{
			StudentSummary: row,
			Tier:           string(TierFor(row.AvgQuizScore)),
		})
	}
	return details
}
