package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Session is the authenticated user of the current request.
type Session struct {
	ID       string   `json:"id"`
	FullName string   `json:"fullName"`
	Role     UserRole `json:"role"`
}

// IsTeacher reports whether the session belongs to a teacher.
func (s *Session) IsTeacher() bool {
	return s != nil && s.Role == RoleTeacher
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
