package model

import (
	"errors"
	"strings"
	"time"
)

// User represents an account in the system.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	Username       string     `db:"username" json:"username"`
	PasswordHashed string     `db:"password_hashed" json:"-"` // "-" hides from JSON output
	AvatarURL      *string    `db:"avatar_url" json:"avatar_url"`
	IsAdmin        bool       `db:"is_admin" json:"-"`
	LastActive     *time.Time `db:"last_active" json:"last_active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UserSummary is the lightweight profile shape attached to posts, comments and
// chat messages.
type UserSummary struct {
	ID         int64      `db:"id" json:"id"`
	Username   string     `db:"username" json:"username"`
	AvatarURL  *string    `db:"avatar_url" json:"avatar_url"`
	LastActive *time.Time `db:"last_active" json:"last_active,omitempty"`
}

// RegisterRequest represents the data needed to register a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the data needed to log in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OnlineWindow is how recently a user must have been active to count as online.
const OnlineWindow = 60 * time.Second

// IsOnline reports whether a last-active timestamp falls inside the online window.
func IsOnline(lastActive *time.Time, now time.Time) bool {
	if lastActive == nil {
		return false
	}
	return now.Sub(*lastActive) <= OnlineWindow
}

// EmailLocalPart returns the part of an email address before the "@".
// It is the universal display fallback when a profile row is unavailable.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when registering with a taken email
	ErrEmailExists = errors.New("email already registered")

	// ErrUsernameExists is returned when registering with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAdmin is returned when a moderation action is attempted by a
	// non-privileged user. Client-side hiding of controls is not the security
	// boundary; this check is.
	ErrNotAdmin = errors.New("admin privileges required")
)
