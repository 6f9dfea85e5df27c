package model

import "time"

// Admin represents a back-office operator account.
//
// Admins and Users are stored in separate tables on purpose: they have
// different natural keys (username vs email), different token lifetimes, and
// different cookie names. Keeping them apart means a compromised user record
// can never be "promoted" by flipping a role column.
//
// LastLoginAt is a *time.Time (nullable) — nil until the first successful
// login, updated on every one after that.
type Admin struct {
	ID           string     `json:"id"          db:"id"`
	Username     string     `json:"username"    db:"username"`
	PasswordHash string     `json:"-"           db:"password_hash"` // bcrypt hash, never exposed
	Email        string     `json:"email"       db:"email"`
	Role         string     `json:"role"        db:"role"` // fixed to "admin"
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt"   db:"updated_at"`
}

// Principal returns the sanitized, role-tagged view of this account.
func (a *Admin) Principal() *Principal {
	return &Principal{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     "admin",
	}
}
