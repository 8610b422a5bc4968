package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role inside their organization.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleViewer  Role = "VIEWER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// User represents a platform user.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Password       string     `json:"-"`
	FullName       *string    `json:"full_name,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsSuperuser    bool       `json:"is_superuser"`
	Role           Role       `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FullName       *string    `json:"full_name,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsSuperuser    bool       `json:"is_superuser"`
	Role           Role       `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		IsActive:       u.IsActive,
		IsSuperuser:    u.IsSuperuser,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// PasswordResetTTL is how long a reset token stays valid after issuance.
const PasswordResetTTL = 24 * time.Hour

// PasswordResetToken is a single-use credential for resetting a password.
type PasswordResetToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Used      bool      `json:"used"`
}

// Expired reports whether the token is past its expiry at now.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
