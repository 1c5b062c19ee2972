// Package models holds the auth module's entities.
package models

import (
	"time"

	id "libris/pkg/domain"
	"libris/pkg/requestcontext"
)

// User is a credential-store record. Immutable once created except for
// deactivation; PasswordHash never leaves this package boundary in responses.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	Department   string
	EmployeeID   string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Identity returns the sanitized authenticated view of the user.
func (u *User) Identity() requestcontext.AuthIdentity {
	return requestcontext.AuthIdentity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}

// Profile is the caller-facing projection of a user, without the hash.
type Profile struct {
	ID         id.UserID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	EmployeeID string    `json:"employee_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile projects the user into its response shape.
func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		Department: u.Department,
		EmployeeID: u.EmployeeID,
		CreatedAt:  u.CreatedAt,
	}
}

// Session is a time-bounded proof of authenticated identity keyed by an
// opaque token. Valid iff it exists, has not expired, and its owning user is
// active; expiry is enforced lazily at validation time.
type Session struct {
	ID        id.SessionID
	Token     string
	UserID    id.UserID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
