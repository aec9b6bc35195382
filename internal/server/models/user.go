// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the authorization class of an identity.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is a registered identity.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash []byte
	Role         Role
	// Verified flips to true once, when the registration code is answered.
	Verified  bool
	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
