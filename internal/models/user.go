package models

import (
	"strings"
	"time"
)

// Permission levels. Anything at or above PermissionLevelSuperAdmin may manage users.
const (
	PermissionLevelMin        = 1
	PermissionLevelMax        = 5
	PermissionLevelSuperAdmin = 5
)

// UserStatus represents the lifecycle status of a user record.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// User is a row in the Users table.
//
// Attribute names match the table written by the Amplify data model so
// existing DynamoDB tables can be reused as-is.
type User struct {
	ID              string     `dynamodbav:"id" json:"id"`
	Email           string     `dynamodbav:"email" json:"email"`
	FirstName       *string    `dynamodbav:"first_name" json:"first_name"`
	LastName        *string    `dynamodbav:"last_name" json:"last_name"`
	PermissionLevel int        `dynamodbav:"permission_level" json:"permission_level"`
	Status          UserStatus `dynamodbav:"status" json:"status"`
	InvitedBy       string     `dynamodbav:"invited_by" json:"invited_by"`
	CreatedAt       time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// NormalizeEmail lowercases an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}

// ValidPermissionLevel reports whether level is inside the supported range.
func ValidPermissionLevel(level int) bool {
	return level >= PermissionLevelMin && level <= PermissionLevelMax
}

// IsPrivileged reports whether a permission level grants super-admin access.
func IsPrivileged(level int) bool {
	return level >= PermissionLevelSuperAdmin
}

// DisplayName joins the optional first and last names.
func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy so callers can't mutate stored state.
func (u *User) Clone() *User {
	clone := *u
	if u.FirstName != nil {
		v := *u.FirstName
		clone.FirstName = &v
	}
	if u.LastName != nil {
		v := *u.LastName
		clone.LastName = &v
	}
	return &clone
}
