package service

import (
	"strings"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
)

// Role is the dashboard scope an identity resolves to.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleNone    Role = "none"
)

// RoleConfig maps dashboard roles to host role names.
type RoleConfig struct {
	AdminRoles   []string
	TeacherRoles []string
	StudentRoles []string
}

// DefaultRoleConfig returns the stock WordPress/LearnDash role names.
func DefaultRoleConfig() RoleConfig {
	return RoleConfig{
		AdminRoles:   []string{"administrator"},
		TeacherRoles: []string{"group_leader", "school_teacher"},
		StudentRoles: []string{"subscriber", "student", "student_private", "stm_lms_student"},
	}
}

// RoleResolver classifies identities by exact, case-insensitive role name matching.
type RoleResolver struct {
	admin   map[string]struct{}
	teacher map[string]struct{}
	student map[string]struct{}
}

// NewRoleResolver constructs a resolver for the configured role names.
func NewRoleResolver(cfg RoleConfig) *RoleResolver {
	return &RoleResolver{
		admin:   roleSet(cfg.AdminRoles),
		teacher: roleSet(cfg.TeacherRoles),
		student: roleSet(cfg.StudentRoles),
	}
}

func roleSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// Resolve returns exactly one role; administrator wins over teacher.
func (r *RoleResolver) Resolve(identity models.Identity) Role {
	if identity.ID == 0 {
		return RoleNone
	}
	roles := normalizedIdentity(identity)
	switch {
	case roles.HasAnyRole(r.admin):
		return RoleAdmin
	case roles.HasAnyRole(r.teacher):
		return RoleTeacher
	default:
		return RoleNone
	}
}

// IsStudent reports whether the identity is student-like: it holds a student role
// and no administrator or teacher role.
func (r *RoleResolver) IsStudent(identity models.Identity) bool {
	if r.Resolve(identity) != RoleNone {
		return false
	}
	return normalizedIdentity(identity).HasAnyRole(r.student)
}

// ScopeFor derives the data scope of an identity.
func (r *RoleResolver) ScopeFor(identity models.Identity) Scope {
	switch r.Resolve(identity) {
	case RoleAdmin:
		return AdminScope()
	case RoleTeacher:
		return TeacherScope(identity.ID)
	default:
		return Scope{Role: RoleNone}
	}
}

func normalizedIdentity(identity models.Identity) models.Identity {
	roles := make([]string, len(identity.Roles))
	for i, role := range identity.Roles {
		roles[i] = strings.ToLower(strings.TrimSpace(role))
	}
	identity.Roles = roles
	return identity
}

// Scope bounds what an aggregation may return. The zero value sees nothing.
type Scope struct {
	Role      Role
	TeacherID uint64
}

// AdminScope sees every row.
func AdminScope() Scope {
	return Scope{Role: RoleAdmin}
}

// TeacherScope sees the groups led by one teacher.
func TeacherScope(teacherID uint64) Scope {
	return Scope{Role: RoleTeacher, TeacherID: teacherID}
}

// IsAdmin reports whether the scope is unrestricted.
func (s Scope) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// IsTeacher reports whether the scope is restricted to a valid teacher.
func (s Scope) IsTeacher() bool {
	return s.Role == RoleTeacher && s.TeacherID > 0
}

// IsNone reports whether the scope must yield no rows.
func (s Scope) IsNone() bool {
	return !s.IsAdmin() && !s.IsTeacher()
}
