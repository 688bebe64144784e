package auth

import (
	"errors"
	"time"
)

const (
	RoleAdmin          = "admin"
	RolePayrollManager = "payroll_manager"
	RoleViewer         = "viewer"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RolePayrollManager, RoleViewer:
		return true
	}
	return false
}

// CanManagePayroll reports whether the role may create, submit, approve,
// or process runs and edit employees, orders, and rulesets. Viewers are
// read-only.
func CanManagePayroll(role string) bool {
	return role == RoleAdmin || role == RolePayrollManager
}
