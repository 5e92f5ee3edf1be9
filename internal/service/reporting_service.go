package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/teacher-dashboard-api/internal/dto"
	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/internal/repository"
	"github.com/noah-isme/teacher-dashboard-api/pkg/wpmeta"
)

// ReportingService computes scoped aggregates over the host LMS tables.
// Every list operation returns an empty, non-nil slice for a none scope.
type ReportingService interface {
	Identity(ctx context.Context, userID uint64) (models.Identity, error)
	ListTeachers(ctx context.Context, scope Scope) ([]dto.TeacherSummary, error)
	ListGroups(ctx context.Context, scope Scope) ([]dto.GroupSummary, error)
	ListStudents(ctx context.Context, scope Scope) ([]dto.StudentSummary, error)
	QuizStatistics(ctx context.Context, scope Scope) ([]dto.QuizSummary, error)
	StudentQuizAttempts(ctx context.Context, studentID uint64) ([]dto.StudentQuizAttempt, error)
	LeadsGroup(ctx context.Context, teacherID, groupID uint64) (bool, error)
	TeachesStudent(ctx context.Context, teacherID, studentID uint64) (bool, error)
}

type reportingService struct {
	repo     repository.ReportingRepository
	resolver *RoleResolver
	logger   zerolog.Logger
}

// NewReportingService constructs the aggregation engine.
func NewReportingService(repo repository.ReportingRepository, resolver *RoleResolver, logger zerolog.Logger) ReportingService {
	return &reportingService{
		repo:     repo,
		resolver: resolver,
		logger:   logger.With().Str("component", "reporting_service").Logger(),
	}
}

// roster is the set of published groups visible to a scope with their leaders and members.
type roster struct {
	groups  []models.Post
	leaders map[uint64][]uint64
	members map[uint64][]uint64
}

func (r roster) memberIDs() []uint64 {
	set := make(map[uint64]struct{})
	for _, ids := range r.members {
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	return sortedIDs(set)
}

func (s *reportingService) loadRoster(ctx context.Context, scope Scope) (roster, error) {
	result := roster{
		groups:  []models.Post{},
		leaders: map[uint64][]uint64{},
		members: map[uint64][]uint64{},
	}

	var (
		groups []models.Post
		err    error
	)
	switch {
	case scope.IsAdmin():
		groups, err = s.repo.ListGroups(ctx, repository.GroupFilter{Status: models.PostStatusPublished})
	case scope.IsTeacher():
		var led []repository.GroupAssociation
		led, err = s.repo.ListGroupAssociations(ctx, repository.AssociationFilter{
			Relation: wpmeta.RelationLeader,
			UserIDs:  []uint64{scope.TeacherID},
		})
		if err != nil {
			return result, fmt.Errorf("list led groups: %w", err)
		}
		ids := make([]uint64, 0, len(led))
		for _, association := range led {
			ids = append(ids, association.GroupID)
		}
		groups, err = s.repo.ListGroups(ctx, repository.GroupFilter{IDs: ids, Status: models.PostStatusPublished})
	default:
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("list groups: %w", err)
	}

	groupIDs := make([]uint64, 0, len(groups))
	for i := range groups {
		groups[i].PostTitle = wpmeta.PlainText(groups[i].PostTitle)
		groupIDs = append(groupIDs, groups[i].ID)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if c := compareFold(groups[i].PostTitle, groups[j].PostTitle); c != 0 {
			return c < 0
		}
		return groups[i].ID < groups[j].ID
	})
	result.groups = groups

	filter := repository.AssociationFilter{GroupIDs: groupIDs}
	if scope.IsAdmin() {
		filter = repository.AssociationFilter{}
	}
	associations, err := s.repo.ListGroupAssociations(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("list group associations: %w", err)
	}

	published := make(map[uint64]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		published[id] = struct{}{}
	}
	for _, association := range associations {
		if _, ok := published[association.GroupID]; !ok {
			continue
		}
		switch association.Relation {
		case wpmeta.RelationLeader:
			result.leaders[association.GroupID] = append(result.leaders[association.GroupID], association.UserID)
		case wpmeta.RelationMember:
			result.members[association.GroupID] = append(result.members[association.GroupID], association.UserID)
		}
	}

	return result, nil
}

// loadIdentities resolves users and their roles. A nil ids slice loads every user
// that has a capabilities row.
func (s *reportingService) loadIdentities(ctx context.Context, ids []uint64) (map[uint64]models.Identity, error) {
	identities := make(map[uint64]models.Identity)
	if ids != nil && len(ids) == 0 {
		return identities, nil
	}

	capabilities, err := s.repo.ListCapabilities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list capabilities: %w", err)
	}

	userIDs := ids
	if userIDs == nil {
		set := make(map[uint64]struct{}, len(capabilities))
		for id := range capabilities {
			set[id] = struct{}{}
		}
		userIDs = sortedIDs(set)
	}

	users, err := s.repo.ListUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for _, user := range users {
		identities[user.ID] = models.Identity{
			ID:          user.ID,
			DisplayName: wpmeta.PlainText(user.DisplayName),
			Email:       user.UserEmail,
			Roles:       s.decodeRoles(user.ID, capabilities[user.ID]),
		}
	}
	return identities, nil
}

func (s *reportingService) decodeRoles(userID uint64, blob string) []string {
	roles, err := wpmeta.ParseCapabilities(blob)
	if err != nil {
		s.logger.Warn().Err(err).Uint64("user_id", userID).Msg("ignoring malformed capabilities")
		return []string{}
	}
	return roles
}

func (s *reportingService) Identity(ctx context.Context, userID uint64) (models.Identity, error) {
	if userID == 0 {
		return models.Identity{}, ErrIdentityNotFound
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Identity{}, ErrIdentityNotFound
		}
		return models.Identity{}, fmt.Errorf("get user: %w", err)
	}

	capabilities, err := s.repo.ListCapabilities(ctx, []uint64{userID})
	if err != nil {
		return models.Identity{}, fmt.Errorf("list capabilities: %w", err)
	}

	return models.Identity{
		ID:          user.ID,
		DisplayName: wpmeta.PlainText(user.DisplayName),
		Email:       user.UserEmail,
		Roles:       s.decodeRoles(user.ID, capabilities[user.ID]),
	}, nil
}

func (s *reportingService) ListTeachers(ctx context.Context, scope Scope) ([]dto.TeacherSummary, error) {
	teachers := make([]dto.TeacherSummary, 0)
	if !scope.IsAdmin() {
		return teachers, nil
	}

	identities, err := s.loadIdentities(ctx, nil)
	if err != nil {
		return nil, err
	}

	groups, err := s.loadRoster(ctx, scope)
	if err != nil {
		return nil, err
	}

	ledBy := make(map[uint64][]models.Post)
	for _, group := range groups.groups {
		for _, leaderID := range groups.leaders[group.ID] {
			ledBy[leaderID] = append(ledBy[leaderID], group)
		}
	}

	for _, identity := range identities {
		if s.resolver.Resolve(identity) != RoleTeacher {
			continue
		}

		students := make(map[uint64]struct{})
		led := make([]dto.TeacherGroup, 0, len(ledBy[identity.ID]))
		for _, group := range ledBy[identity.ID] {
			members := uniqueIDs(groups.members[group.ID])
			for _, id := range members {
				students[id] = struct{}{}
			}
			led = append(led, dto.TeacherGroup{
				GroupID:      group.ID,
				Title:        group.PostTitle,
				Status:       group.PostStatus,
				StudentCount: len(members),
			})
		}

		teachers = append(teachers, dto.TeacherSummary{
			TeacherID:    identity.ID,
			Name:         identity.DisplayName,
			Email:        identity.Email,
			Roles:        identity.Roles,
			Groups:       led,
			StudentCount: len(students),
		})
	}

	sort.Slice(teachers, func(i, j int) bool {
		if c := compareFold(teachers[i].Name, teachers[j].Name); c != 0 {
			return c < 0
		}
		return teachers[i].TeacherID < teachers[j].TeacherID
	})
	return teachers, nil
}

func (s *reportingService) ListGroups(ctx context.Context, scope Scope) ([]dto.GroupSummary, error) {
	summaries := make([]dto.GroupSummary, 0)
	if scope.IsNone() {
		return summaries, nil
	}

	groups, err := s.loadRoster(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(groups.groups) == 0 {
		return summaries, nil
	}

	leaderSet := make(map[uint64]struct{})
	for _, ids := range groups.leaders {
		for _, id := range ids {
			leaderSet[id] = struct{}{}
		}
	}
	leaders, err := s.repo.ListUsers(ctx, sortedIDs(leaderSet))
	if err != nil {
		return nil, fmt.Errorf("list group leaders: %w", err)
	}
	leaderNames := make(map[uint64]string, len(leaders))
	for _, leader := range leaders {
		leaderNames[leader.ID] = wpmeta.PlainText(leader.DisplayName)
	}

	var attempts map[uint64]int64
	if scope.IsAdmin() {
		attempts, err = s.repo.CountActivitiesByUser(ctx, repository.ActivityFilter{Type: models.ActivityTypeQuiz})
		if err != nil {
			return nil, fmt.Errorf("count quiz attempts: %w", err)
		}
	}

	for _, group := range groups.groups {
		leaderIDs := uniqueIDs(groups.leaders[group.ID])
		names := make([]string, 0, len(leaderIDs))
		for _, id := range leaderIDs {
			if name, ok := leaderNames[id]; ok {
				names = append(names, name)
			}
		}

		members := uniqueIDs(groups.members[group.ID])
		summary := dto.GroupSummary{
			GroupID:      group.ID,
			Title:        group.PostTitle,
			Status:       group.PostStatus,
			CreatedAt:    group.PostDate,
			Leaders:      strings.Join(sortedUniqueFold(names), ", "),
			LeaderIDs:    leaderIDs,
			StudentCount: len(members),
		}
		if attempts != nil {
			var total int64
			for _, id := range members {
				total += attempts[id]
			}
			summary.QuizAttempts = &total
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// studentStats accumulates activity figures for one student.
type studentStats struct {
	courses        map[uint64]struct{}
	attempted      map[uint64]struct{}
	completed      map[uint64]struct{}
	scoredActivity []uint64
	lastActivity   int64
	scoreSum       float64
	scoreCount     int
}

func newStudentStats() *studentStats {
	return &studentStats{
		courses:   map[uint64]struct{}{},
		attempted: map[uint64]struct{}{},
		completed: map[uint64]struct{}{},
	}
}

func (st *studentStats) add(activity models.UserActivity) {
	if activity.ActivityCompleted != nil && *activity.ActivityCompleted > st.lastActivity {
		st.lastActivity = *activity.ActivityCompleted
	}
	switch activity.ActivityType {
	case models.ActivityTypeCourse:
		if activity.CourseID > 0 {
			st.courses[activity.CourseID] = struct{}{}
		}
	case models.ActivityTypeQuiz:
		st.attempted[activity.PostID] = struct{}{}
		if activity.ActivityStatus {
			st.completed[activity.PostID] = struct{}{}
			st.scoredActivity = append(st.scoredActivity, activity.ActivityID)
		}
	}
}

func (st *studentStats) apply(summary *dto.StudentSummary) {
	summary.EnrolledCourses = len(st.courses)
	summary.AttemptedQuizzes = len(st.attempted)
	summary.CompletedQuizzes = len(st.completed)
	if summary.AttemptedQuizzes > 0 {
		summary.SuccessRate = roundTo(float64(summary.CompletedQuizzes)/float64(summary.AttemptedQuizzes)*100, 2)
	}
	if st.scoreCount > 0 {
		avg := st.scoreSum / float64(st.scoreCount)
		summary.AvgQuizScore = &avg
	}
	if st.lastActivity > 0 {
		last := models.UserActivity{ActivityCompleted: &st.lastActivity}
		summary.LastActivity = last.CompletedAt()
	}
}

func (s *reportingService) ListStudents(ctx context.Context, scope Scope) ([]dto.StudentSummary, error) {
	rows := make([]dto.StudentSummary, 0)
	if scope.IsNone() {
		return rows, nil
	}

	groups, err := s.loadRoster(ctx, scope)
	if err != nil {
		return nil, err
	}

	var identityIDs []uint64
	if scope.IsTeacher() {
		identityIDs = groups.memberIDs()
		if len(identityIDs) == 0 {
			return rows, nil
		}
	}
	identities, err := s.loadIdentities(ctx, identityIDs)
	if err != nil {
		return nil, err
	}

	students := make(map[uint64]models.Identity)
	for id, identity := range identities {
		if s.resolver.IsStudent(identity) {
			students[id] = identity
		}
	}
	if len(students) == 0 {
		return rows, nil
	}

	stats, err := s.loadStudentStats(ctx, scope, students)
	if err != nil {
		return nil, err
	}

	summarize := func(identity models.Identity, group *models.Post) dto.StudentSummary {
		summary := dto.StudentSummary{
			StudentID: identity.ID,
			Name:      identity.DisplayName,
			Email:     identity.Email,
		}
		if group != nil {
			summary.GroupID = group.ID
			summary.GroupName = group.PostTitle
		}
		if st, ok := stats[identity.ID]; ok {
			st.apply(&summary)
		}
		return summary
	}

	grouped := make(map[uint64]struct{})
	for i := range groups.groups {
		group := &groups.groups[i]
		members := make([]models.Identity, 0)
		for _, id := range uniqueIDs(groups.members[group.ID]) {
			if identity, ok := students[id]; ok {
				members = append(members, identity)
				grouped[id] = struct{}{}
			}
		}
		sortIdentities(members)
		for _, identity := range members {
			rows = append(rows, summarize(identity, group))
		}
	}

	if scope.IsAdmin() {
		ungrouped := make([]models.Identity, 0)
		for id, identity := range students {
			if _, ok := grouped[id]; !ok {
				ungrouped = append(ungrouped, identity)
			}
		}
		sortIdentities(ungrouped)
		for _, identity := range ungrouped {
			rows = append(rows, summarize(identity, nil))
		}
	}

	return rows, nil
}

func (s *reportingService) loadStudentStats(ctx context.Context, scope Scope, students map[uint64]models.Identity) (map[uint64]*studentStats, error) {
	filter := repository.ActivityFilter{}
	if !scope.IsAdmin() {
		ids := make(map[uint64]struct{}, len(students))
		for id := range students {
			ids[id] = struct{}{}
		}
		filter.UserIDs = sortedIDs(ids)
	}

	activities, err := s.repo.ListActivities(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	stats := make(map[uint64]*studentStats, len(students))
	scored := make([]uint64, 0)
	owner := make(map[uint64]uint64)
	for _, activity := range activities {
		if _, ok := students[activity.UserID]; !ok {
			continue
		}
		st, ok := stats[activity.UserID]
		if !ok {
			st = newStudentStats()
			stats[activity.UserID] = st
		}
		before := len(st.scoredActivity)
		st.add(activity)
		if len(st.scoredActivity) > before {
			scored = append(scored, activity.ActivityID)
			owner[activity.ActivityID] = activity.UserID
		}
	}

	if len(scored) == 0 {
		return stats, nil
	}

	metrics, err := s.repo.ListActivityMetrics(ctx, scored, models.MetricPercentage)
	if err != nil {
		return nil, fmt.Errorf("list quiz scores: %w", err)
	}
	for _, activityID := range scored {
		score, ok := parsePercentage(metrics[activityID])
		if !ok {
			continue
		}
		st := stats[owner[activityID]]
		st.scoreSum += score
		st.scoreCount++
	}

	return stats, nil
}

// quizAccumulator gathers raw scores of one quiz.
type quizAccumulator struct {
	quizID   uint64
	courseID uint64
	count    int
	sum      float64
	min      float64
	max      float64
}

func (s *reportingService) QuizStatistics(ctx context.Context, scope Scope) ([]dto.QuizSummary, error) {
	summaries := make([]dto.QuizSummary, 0)
	if scope.IsNone() {
		return summaries, nil
	}

	filter := repository.ActivityFilter{Type: models.ActivityTypeQuiz, CompletedOnly: true}
	if scope.IsTeacher() {
		groups, err := s.loadRoster(ctx, scope)
		if err != nil {
			return nil, err
		}
		filter.UserIDs = groups.memberIDs()
		if len(filter.UserIDs) == 0 {
			return summaries, nil
		}
	}

	activities, err := s.repo.ListActivities(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list quiz activities: %w", err)
	}
	if len(activities) == 0 {
		return summaries, nil
	}

	activityIDs := make([]uint64, 0, len(activities))
	for _, activity := range activities {
		activityIDs = append(activityIDs, activity.ActivityID)
	}
	metrics, err := s.repo.ListActivityMetrics(ctx, activityIDs, models.MetricPercentage)
	if err != nil {
		return nil, fmt.Errorf("list quiz scores: %w", err)
	}

	quizzes := make(map[uint64]*quizAccumulator)
	postIDs := make(map[uint64]struct{})
	for _, activity := range activities {
		score, ok := parsePercentage(metrics[activity.ActivityID])
		if !ok {
			continue
		}
		acc, exists := quizzes[activity.PostID]
		if !exists {
			acc = &quizAccumulator{quizID: activity.PostID, courseID: activity.CourseID, min: score, max: score}
			quizzes[activity.PostID] = acc
			postIDs[activity.PostID] = struct{}{}
			if activity.CourseID > 0 {
				postIDs[activity.CourseID] = struct{}{}
			}
		}
		acc.count++
		acc.sum += score
		acc.min = math.Min(acc.min, score)
		acc.max = math.Max(acc.max, score)
	}
	if len(quizzes) == 0 {
		return summaries, nil
	}

	titles, err := s.postTitles(ctx, sortedIDs(postIDs))
	if err != nil {
		return nil, err
	}

	for id, acc := range quizzes {
		title, ok := titles[id]
		if !ok {
			continue
		}
		summary := dto.QuizSummary{
			QuizID:        id,
			Title:         title,
			TotalAttempts: acc.count,
			AvgScore:      acc.sum / float64(acc.count),
			MinScore:      acc.min,
			MaxScore:      acc.max,
		}
		if course, ok := titles[acc.courseID]; ok && acc.courseID > 0 {
			summary.CourseID = acc.courseID
			summary.CourseName = course
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if c := compareFold(summaries[i].Title, summaries[j].Title); c != 0 {
			return c < 0
		}
		return summaries[i].QuizID < summaries[j].QuizID
	})
	return summaries, nil
}

func (s *reportingService) StudentQuizAttempts(ctx context.Context, studentID uint64) ([]dto.StudentQuizAttempt, error) {
	attempts := make([]dto.StudentQuizAttempt, 0)

	activities, err := s.repo.ListActivities(ctx, repository.ActivityFilter{
		UserIDs: []uint64{studentID},
		Type:    models.ActivityTypeQuiz,
	})
	if err != nil {
		return nil, fmt.Errorf("list quiz activities: %w", err)
	}
	if len(activities) == 0 {
		return attempts, nil
	}

	activityIDs := make([]uint64, 0, len(activities))
	postIDs := make(map[uint64]struct{})
	for _, activity := range activities {
		activityIDs = append(activityIDs, activity.ActivityID)
		postIDs[activity.PostID] = struct{}{}
		if activity.CourseID > 0 {
			postIDs[activity.CourseID] = struct{}{}
		}
	}

	metrics, err := s.repo.ListActivityMetrics(ctx, activityIDs, models.MetricPercentage)
	if err != nil {
		return nil, fmt.Errorf("list quiz scores: %w", err)
	}
	titles, err := s.postTitles(ctx, sortedIDs(postIDs))
	if err != nil {
		return nil, err
	}

	for _, activity := range activities {
		score, ok := parsePercentage(metrics[activity.ActivityID])
		if !ok {
			continue
		}
		quizName, ok := titles[activity.PostID]
		if !ok {
			continue
		}
		attempts = append(attempts, dto.StudentQuizAttempt{
			ActivityID:  activity.ActivityID,
			QuizID:      activity.PostID,
			QuizName:    quizName,
			CourseName:  titles[activity.CourseID],
			CompletedAt: activity.CompletedAt(),
			Score:       score,
			Completed:   activity.ActivityStatus,
		})
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		a, b := attempts[i].CompletedAt, attempts[j].CompletedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return attempts[i].ActivityID > attempts[j].ActivityID
	})
	return attempts, nil
}

func (s *reportingService) LeadsGroup(ctx context.Context, teacherID, groupID uint64) (bool, error) {
	if teacherID == 0 || groupID == 0 {
		return false, nil
	}
	associations, err := s.repo.ListGroupAssociations(ctx, repository.AssociationFilter{
		Relation: wpmeta.RelationLeader,
		UserIDs:  []uint64{teacherID},
		GroupIDs: []uint64{groupID},
	})
	if err != nil {
		return false, fmt.Errorf("check group leader: %w", err)
	}
	return len(associations) > 0, nil
}

func (s *reportingService) TeachesStudent(ctx context.Context, teacherID, studentID uint64) (bool, error) {
	if teacherID == 0 || studentID == 0 {
		return false, nil
	}
	led, err := s.repo.ListGroupAssociations(ctx, repository.AssociationFilter{
		Relation: wpmeta.RelationLeader,
		UserIDs:  []uint64{teacherID},
	})
	if err != nil {
		return false, fmt.Errorf("list led groups: %w", err)
	}
	if len(led) == 0 {
		return false, nil
	}

	groupIDs := make([]uint64, 0, len(led))
	for _, association := range led {
		groupIDs = append(groupIDs, association.GroupID)
	}
	memberships, err := s.repo.ListGroupAssociations(ctx, repository.AssociationFilter{
		Relation: wpmeta.RelationMember,
		UserIDs:  []uint64{studentID},
		GroupIDs: groupIDs,
	})
	if err != nil {
		return false, fmt.Errorf("check student membership: %w", err)
	}
	return len(memberships) > 0, nil
}

func (s *reportingService) postTitles(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	posts, err := s.repo.ListPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	titles := make(map[uint64]string, len(posts))
	for _, post := range posts {
		titles[post.ID] = wpmeta.PlainText(post.PostTitle)
	}
	return titles, nil
}

// parsePercentage reads a stored percentage metric; blank or non-finite values do not count.
func parsePercentage(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func sortIdentities(identities []models.Identity) {
	sort.Slice(identities, func(i, j int) bool {
		if c := compareFold(identities[i].DisplayName, identities[j].DisplayName); c != 0 {
			return c < 0
		}
		return identities[i].ID < identities[j].ID
	})
}

func sortedIDs(set map[uint64]struct{}) []uint64 {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func uniqueIDs(ids []uint64) []uint64 {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return sortedIDs(set)
}

func sortedUniqueFold(values []string) []string {
	sorted := append([]string(nil), values...)
	sort.SliceStable(sorted, func(i, j int) bool { return compareFold(sorted[i], sorted[j]) < 0 })
	result := make([]string, 0, len(sorted))
	for _, value := range sorted {
		if len(result) > 0 && result[len(result)-1] == value {
			continue
		}
		result = append(result, value)
	}
	return result
}
