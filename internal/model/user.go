package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of staff roles.
type Role string

const (
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

// Roles lists every valid role.
var Roles = []Role{RoleStaff, RoleAdmin, RoleDoctor}

// ParseRole rejects anything outside the closed role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStaff, RoleAdmin, RoleDoctor:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User represents a clinic staff member.
type User struct {
	Base
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         Role       `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,max=200"`
	Password string `json:"password" binding:"required,min=8"`
	Role     Role   `json:"role" binding:"required,clinic_role"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=200"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Role     *Role   `json:"role" binding:"omitempty,clinic_role"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

type UserFilters struct {
	Role     Role  `form:"role"`
	IsActive *bool `form:"is_active"`
	Pagination
}

// Identity is the resolved caller of a request.
type Identity struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	APIKeyID uuid.UUID `json:"api_key_id,omitempty"`
}

// ViaAPIKey reports whether the identity was resolved from an API key.
func (i Identity) ViaAPIKey() bool {
	return i.APIKeyID != uuid.Nil
}
