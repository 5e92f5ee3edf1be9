package service

import "errors"

var (
	// ErrAccessDenied indicates the identity holds no dashboard role or may not see the target.
	ErrAccessDenied = errors.New("dashboard access denied")
	// ErrInvalidTeacherID indicates a missing or non-positive teacher id.
	ErrInvalidTeacherID = errors.New("invalid teacher id")
	// ErrTeacherNotFound indicates the id does not belong to a teacher.
	ErrTeacherNotFound = errors.New("teacher not found")
	// ErrInvalidGroupID indicates a missing or non-positive group id.
	ErrInvalidGroupID = errors.New("invalid group id")
	// ErrGroupNotFound indicates the group does not exist or is not published.
	ErrGroupNotFound = errors.New("group not found")
	// ErrInvalidStudentID indicates a missing or non-positive student id.
	ErrInvalidStudentID = errors.New("invalid student id")
	// ErrStudentNotFound indicates the id does not belong to a student.
	ErrStudentNotFound = errors.New("student not found")
	// ErrIdentityNotFound indicates the session subject has no host user row.
	ErrIdentityNotFound = errors.New("identity not found")
)
