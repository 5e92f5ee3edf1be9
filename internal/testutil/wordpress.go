// Package testutil seeds an in-memory copy of the host WordPress/LearnDash schema.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/pkg/wpmeta"
)

// DefaultPrefix matches the stock WordPress table prefix.
const DefaultPrefix = "wp_"

// WordPress is a seeded host database used by repository, service and handler tests.
type WordPress struct {
	t          *testing.T
	DB         *gorm.DB
	Prefix     string
	nextPostAt time.Time
}

// NewWordPress opens an isolated in-memory SQLite database and creates the host tables.
func NewWordPress(t *testing.T, prefix string) *WordPress {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	tables := map[string]interface{}{
		models.TableUsers:            &models.User{},
		models.TableUserMeta:         &models.UserMeta{},
		models.TablePosts:            &models.Post{},
		models.TableUserActivity:     &models.UserActivity{},
		models.TableUserActivityMeta: &models.UserActivityMeta{},
	}
	for name, model := range tables {
		require.NoError(t, db.Table(prefix+name).AutoMigrate(model))
	}

	return &WordPress{
		t:          t,
		DB:         db,
		Prefix:     prefix,
		nextPostAt: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (w *WordPress) create(table string, value interface{}) {
	w.t.Helper()
	require.NoError(w.t, w.DB.Table(w.Prefix+table).Create(value).Error)
}

// AddUser inserts a user and its capabilities row granting the given roles.
func (w *WordPress) AddUser(id uint64, name, email string, roles ...string) {
	w.t.Helper()
	w.AddUserWithCapabilities(id, name, email, SerializeRoles(roles...))
}

// AddUserWithCapabilities inserts a user whose capabilities row holds the raw blob.
func (w *WordPress) AddUserWithCapabilities(id uint64, name, email, blob string) {
	w.t.Helper()
	w.create(models.TableUsers, &models.User{
		ID:          id,
		UserLogin:   strings.ToLower(strings.ReplaceAll(name, " ", ".")),
		UserEmail:   email,
		DisplayName: name,
	})
	w.AddMeta(id, wpmeta.CapabilitiesKey(w.Prefix), blob)
}

// AddMeta inserts a raw usermeta row.
func (w *WordPress) AddMeta(userID uint64, key, value string) {
	w.t.Helper()
	w.create(models.TableUserMeta, &models.UserMeta{UserID: userID, MetaKey: key, MetaValue: &value})
}

// AddPost inserts a post of any type.
func (w *WordPress) AddPost(id uint64, title, postType, status string) {
	w.t.Helper()
	w.nextPostAt = w.nextPostAt.Add(time.Hour)
	w.create(models.TablePosts, &models.Post{
		ID:         id,
		PostTitle:  title,
		PostStatus: status,
		PostType:   postType,
		PostDate:   w.nextPostAt,
	})
}

// AddGroup inserts a LearnDash group.
func (w *WordPress) AddGroup(id uint64, title, status string) {
	w.t.Helper()
	w.AddPost(id, title, models.PostTypeGroup, status)
}

// AddCourse inserts a published course.
func (w *WordPress) AddCourse(id uint64, title string) {
	w.t.Helper()
	w.AddPost(id, title, "sfwd-courses", models.PostStatusPublished)
}

// AddQuiz inserts a published quiz.
func (w *WordPress) AddQuiz(id uint64, title string) {
	w.t.Helper()
	w.AddPost(id, title, "sfwd-quiz", models.PostStatusPublished)
}

// AddLeader records the user as a leader of the group.
func (w *WordPress) AddLeader(userID, groupID uint64) {
	w.t.Helper()
	w.AddMeta(userID, wpmeta.GroupKeyFor(wpmeta.RelationLeader, groupID), fmt.Sprint(groupID))
}

// AddMember records the user as a member of the group.
func (w *WordPress) AddMember(userID, groupID uint64) {
	w.t.Helper()
	w.AddMeta(userID, wpmeta.GroupKeyFor(wpmeta.RelationMember, groupID), fmt.Sprint(groupID))
}

// AddCourseActivity records a course enrollment activity and returns its id.
func (w *WordPress) AddCourseActivity(userID, courseID uint64) uint64 {
	w.t.Helper()
	activity := &models.UserActivity{
		UserID:       userID,
		PostID:       courseID,
		CourseID:     courseID,
		ActivityType: models.ActivityTypeCourse,
	}
	w.create(models.TableUserActivity, activity)
	return activity.ActivityID
}

// AddQuizAttempt records a quiz activity and, when percentage is set, its score metric.
func (w *WordPress) AddQuizAttempt(userID, quizID, courseID uint64, completed bool, percentage *float64, completedAt time.Time) uint64 {
	w.t.Helper()
	activity := &models.UserActivity{
		UserID:         userID,
		PostID:         quizID,
		CourseID:       courseID,
		ActivityType:   models.ActivityTypeQuiz,
		ActivityStatus: completed,
	}
	if !completedAt.IsZero() {
		ts := completedAt.Unix()
		activity.ActivityCompleted = &ts
	}
	w.create(models.TableUserActivity, activity)

	if percentage != nil {
		w.AddActivityMeta(activity.ActivityID, models.MetricPercentage, fmt.Sprintf("%.2f", *percentage))
	}
	return activity.ActivityID
}

// AddActivityMeta attaches a raw metric to an activity.
func (w *WordPress) AddActivityMeta(activityID uint64, key, value string) {
	w.t.Helper()
	w.create(models.TableUserActivityMeta, &models.UserActivityMeta{
		ActivityID:        activityID,
		ActivityMetaKey:   key,
		ActivityMetaValue: &value,
	})
}

// SerializeRoles renders roles the way WordPress stores them in the capabilities row.
func SerializeRoles(roles ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(roles))
	for _, role := range roles {
		fmt.Fprintf(&b, "s:%d:\"%s\";b:1;", len(role), role)
	}
	b.WriteString("}")
	return b.String()
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
