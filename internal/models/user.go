package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

// User roles. Students submit requests; advisors and department heads
// review them; admins manage the system.
const (
	RoleAdmin          UserRole = "ADMIN"
	RoleStudent        UserRole = "STUDENT"
	RoleAdvisor        UserRole = "ADVISOR"
	RoleDepartmentHead UserRole = "DEPARTMENT_HEAD"
)

// ActorRole maps an RBAC role onto the workflow actor vocabulary used by
// the request state machine.
func (r UserRole) ActorRole() ActorRole {
	switch r {
	case RoleAdvisor:
		return ActorAdvisor
	case RoleDepartmentHead:
		return ActorDepartmentHead
	case RoleStudent:
		return ActorStudent
	default:
		return ActorRole("")
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	StudentID    *string    `db:"student_id" json:"student_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
