package dto

import "time"

// TeacherGroup is a published group led by a teacher.
type TeacherGroup struct {
	GroupID      uint64 `json:"group_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	StudentCount int    `json:"student_count"`
}

// TeacherSummary lists a teacher with the groups they lead.
type TeacherSummary struct {
	TeacherID    uint64         `json:"teacher_id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Roles        []string       `json:"roles"`
	Groups       []TeacherGroup `json:"groups"`
	StudentCount int            `json:"student_count"`
}

// GroupSummary describes a published group.
type GroupSummary struct {
	GroupID      uint64    `json:"group_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Leaders      string    `json:"leaders"`
	LeaderIDs    []uint64  `json:"leader_ids"`
	StudentCount int       `json:"student_count"`
	QuizAttempts *int64    `json:"quiz_attempts,omitempty"`
}

// StudentSummary reports one (student, group) pair. GroupID is zero for students
// outside any published group.
type StudentSummary struct {
	StudentID        uint64     `json:"student_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	GroupID          uint64     `json:"group_id"`
	GroupName        string     `json:"group_name"`
	EnrolledCourses  int        `json:"enrolled_courses"`
	AttemptedQuizzes int        `json:"attempted_quizzes"`
	CompletedQuizzes int        `json:"completed_quizzes"`
	SuccessRate      float64    `json:"success_rate"`
	AvgQuizScore     *float64   `json:"avg_quiz_score"`
	LastActivity     *time.Time `json:"last_activity"`
}

// StudentDetail extends a student summary with its performance tier.
type StudentDetail struct {
	StudentSummary
	Tier string `json:"tier"`
}

// QuizSummary aggregates completed, scored attempts of one quiz.
type QuizSummary struct {
	QuizID        uint64  `json:"quiz_id"`
	Title         string  `json:"title"`
	CourseID      uint64  `json:"course_id,omitempty"`
	CourseName    string  `json:"course_name,omitempty"`
	TotalAttempts int     `json:"total_attempts"`
	AvgScore      float64 `json:"avg_score"`
	MinScore      float64 `json:"min_score"`
	MaxScore      float64 `json:"max_score"`
}

// DashboardSummary feeds the summary cards.
type DashboardSummary struct {
	TotalTeachers *int `json:"total_teachers,omitempty"`
	TotalGroups   int  `json:"total_groups"`
	TotalStudents int  `json:"total_students"`
	ActiveQuizzes int  `json:"active_quizzes"`
}

// DashboardPayload is the role-shaped dashboard body. Teachers is only set for administrators.
type DashboardPayload struct {
	Role      string            `json:"role"`
	Summary   DashboardSummary  `json:"summary"`
	Teachers  *[]TeacherSummary `json:"teachers,omitempty"`
	Groups    []GroupSummary    `json:"groups"`
	Students  []StudentSummary  `json:"students"`
	QuizStats []QuizSummary     `json:"quiz_stats"`
}

// TeacherStudentsRequest identifies the teacher whose students are requested.
type TeacherStudentsRequest struct {
	TeacherID uint64 `validate:"required,gt=0"`
}

// TeacherStudentsResponse answers the per-teacher student lookup.
type TeacherStudentsResponse struct {
	TeacherID   uint64          `json:"teacher_id"`
	TeacherName string          `json:"teacher_name"`
	Students    []StudentDetail `json:"students"`
}

// GroupStudentsResponse lists the students of one group.
type GroupStudentsResponse struct {
	Group    GroupSummary    `json:"group"`
	Students []StudentDetail `json:"students"`
}

// StudentQuizAttempt is one scored quiz activity of a student.
type StudentQuizAttempt struct {
	ActivityID  uint64     `json:"activity_id"`
	QuizID      uint64     `json:"quiz_id"`
	QuizName    string     `json:"quiz_name"`
	CourseName  string     `json:"course_name,omitempty"`
	CompletedAt *time.Time `json:"completed_at"`
	Score       float64    `json:"score"`
	Completed   bool       `json:"completed"`
}

// StudentQuizDetailsResponse lists a student's scored quiz attempts, newest first.
type StudentQuizDetailsResponse struct {
	StudentID   uint64               `json:"student_id"`
	StudentName string               `json:"student_name"`
	Attempts    []StudentQuizAttempt `json:"attempts"`
}

// DashboardNonceResponse carries a freshly issued request nonce.
type DashboardNonceResponse struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}
