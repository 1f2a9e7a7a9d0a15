package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Role is the coarse authorization level carried in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrEmptyName        = errors.New("display name is required")
	ErrInvalidRole      = errors.New("invalid role")
	ErrEmptyPassword    = errors.New("password hash is required")
	ErrInvalidUserID    = errors.New("user id is required")
	ErrEmptyTokenHash   = errors.New("token hash is required")
	ErrTokenNotExpiring = errors.New("refresh token expiry must be in the future")
)

// User represents a row of the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, stored lower-cased and trimmed.
//	PasswordHash – bcrypt hash; the plain password never leaves the handler.
//	DisplayName  – name shown in the UI.
//	Role         – user or admin.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	DisplayName  string    // users.display_name
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// NormalizeEmail is the single place emails are canonicalised, so lookups
// and the unique index agree on case.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// NewUser validates the registration fields and returns a User ready to be
// inserted.  ID and timestamps are assigned by the store.
func NewUser(email, passwordHash, displayName string, role Role) (User, error) {
	email = NormalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return User{}, ErrInvalidEmail
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return User{}, ErrEmptyName
	}
	if passwordHash == "" {
		return User{}, ErrEmptyPassword
	}
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return User{}, ErrInvalidRole
	}
	return User{Email: email, PasswordHash: passwordHash, DisplayName: displayName, Role: role}, nil
}

// RefreshToken models an entry in the `refresh_tokens` table.  The token
// handed to the client is not stored; only its SHA-256 hex digest.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash (unique)
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}

// NewRefreshToken validates a record before it reaches the store.
func NewRefreshToken(userID uint64, tokenHash string, expiresAt, now time.Time) (RefreshToken, error) {
	switch {
	case userID == 0:
		return RefreshToken{}, ErrInvalidUserID
	case tokenHash == "":
		return RefreshToken{}, ErrEmptyTokenHash
	case !expiresAt.After(now):
		return RefreshToken{}, ErrTokenNotExpiring
	}
	return RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt.UTC()}, nil
}

// Live reports whether the record can still be exchanged at now.
func (t RefreshToken) Live(now time.Time) bool { return now.Before(t.ExpiresAt) }
