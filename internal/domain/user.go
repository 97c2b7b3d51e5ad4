package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// UserRole
// ──────────────────────────────────────────────────────────────────────────────

// UserRole controls access levels on the HTTP surface. The engine itself
// knows nothing about roles — authority-only operations additionally check
// the caller against the round authority identity.
type UserRole string

const (
	RoleUser  UserRole = "user"  // standard participant
	RoleAdmin UserRole = "admin" // may reach the /admin moderation surface
)

// IsAdmin returns true only for the full admin role.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

// ──────────────────────────────────────────────────────────────────────────────
// User
// ──────────────────────────────────────────────────────────────────────────────

// User is the domain entity for registered accounts. The user ID doubles as
// the token-ledger account and the engine caller identity.
type User struct {
	ID           uuid.UUID `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"` // never serialised
	Role         UserRole  `json:"role"       db:"role"`
	IsActive     bool      `json:"is_active"  db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PublicProfile returns a user view safe to expose via API (no password hash).
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublicProfile converts a User to its public-safe representation.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
