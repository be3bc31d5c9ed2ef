package identity

import (
	"strings"
	"time"

	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRole represents the role of a user within an organization
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
	UserRoleViewer UserRole = "viewer"
)

// IsValid returns true if the role is a known role
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleMember, UserRoleViewer:
		return true
	}
	return false
}

// User represents a user account scoped to an organization
type User struct {
	shared.BaseEntity
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Email          string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Username       string     `gorm:"type:varchar(100);not null"`
	FullName       string     `gorm:"type:varchar(255);not null"`
	PasswordHash   string     `gorm:"type:varchar(255);not null"`
	Role           UserRole   `gorm:"type:varchar(50);not null;default:'member'"`
	IsActive       bool       `gorm:"not null;default:true"`
	LastLoginAt    *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates a new user in the given organization
func NewUser(organizationID uuid.UUID, email, username, fullName, passwordHash string) (*User, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}
	if username == "" {
		return nil, shared.NewDomainError("INVALID_USERNAME", "Username cannot be empty")
	}
	if passwordHash == "" {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password hash cannot be empty")
	}

	return &User{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
		Email:          email,
		Username:       username,
		FullName:       fullName,
		PasswordHash:   passwordHash,
		Role:           UserRoleMember,
		IsActive:       true,
	}, nil
}

// ChangeRole updates the user's role
func (u *User) ChangeRole(role UserRole) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}
	u.Role = role
	u.Touch()
	return nil
}

// RecordLogin stores the last successful login time
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.Touch()
}

// Deactivate marks the user inactive
func (u *User) Deactivate() {
	u.IsActive = false
	u.Touch()
}
