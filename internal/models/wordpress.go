package models

import "time"

// Host table base names; the configured table prefix is prepended at query time.
const (
	TableUsers            = "users"
	TableUserMeta         = "usermeta"
	TablePosts            = "posts"
	TableUserActivity     = "learndash_user_activity"
	TableUserActivityMeta = "learndash_user_activity_meta"
)

// Post types and statuses the dashboard reads.
const (
	PostTypeGroup       = "groups"
	PostStatusPublished = "publish"
)

// Activity types recorded by LearnDash.
const (
	ActivityTypeCourse = "course"
	ActivityTypeQuiz   = "quiz"
)

// MetricPercentage names the activity metric holding a quiz score.
const MetricPercentage = "percentage"

// User mirrors the host users table.
type User struct {
	ID          uint64 `gorm:"column:ID;primaryKey"`
	UserLogin   string `gorm:"column:user_login;size:60"`
	UserEmail   string `gorm:"column:user_email;size:100"`
	DisplayName string `gorm:"column:display_name;size:250"`
}

// UserMeta mirrors the host usermeta key/value table.
type UserMeta struct {
	UmetaID   uint64  `gorm:"column:umeta_id;primaryKey"`
	UserID    uint64  `gorm:"column:user_id"`
	MetaKey   string  `gorm:"column:meta_key;size:255"`
	MetaValue *string `gorm:"column:meta_value;type:text"`
}

// Post mirrors the host posts table; groups, courses and quizzes all live here.
type Post struct {
	ID         uint64    `gorm:"column:ID;primaryKey"`
	PostTitle  string    `gorm:"column:post_title;type:text"`
	PostStatus string    `gorm:"column:post_status;size:20"`
	PostType   string    `gorm:"column:post_type;size:20"`
	PostParent uint64    `gorm:"column:post_parent"`
	PostDate   time.Time `gorm:"column:post_date"`
}

// UserActivity mirrors a LearnDash activity record.
type UserActivity struct {
	ActivityID        uint64 `gorm:"column:activity_id;primaryKey"`
	UserID            uint64 `gorm:"column:user_id"`
	PostID            uint64 `gorm:"column:post_id"`
	CourseID          uint64 `gorm:"column:course_id"`
	ActivityType      string `gorm:"column:activity_type;size:50"`
	ActivityStatus    bool   `gorm:"column:activity_status"`
	ActivityStarted   *int64 `gorm:"column:activity_started"`
	ActivityCompleted *int64 `gorm:"column:activity_completed"`
}

// CompletedAt converts the completion unix timestamp, returning nil when unset.
func (a UserActivity) CompletedAt() *time.Time {
	if a.ActivityCompleted == nil || *a.ActivityCompleted <= 0 {
		return nil
	}
	t := time.Unix(*a.ActivityCompleted, 0).UTC()
	return &t
}

// UserActivityMeta mirrors a named metric attached to an activity record.
type UserActivityMeta struct {
	ActivityMetaID    uint64  `gorm:"column:activity_meta_id;primaryKey"`
	ActivityID        uint64  `gorm:"column:activity_id"`
	ActivityMetaKey   string  `gorm:"column:activity_meta_key;size:255"`
	ActivityMetaValue *string `gorm:"column:activity_meta_value;type:text"`
}
