// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered site visitor account.
//
// Users sign up with email+password (or via GitHub OAuth, in which case
// GitHubID is set and PasswordHash stays empty). Email is the natural key —
// the UNIQUE constraint on users.email in the DB guarantees one account per
// address. Matching is exact and case-sensitive, as stored.
//
// WHY PasswordHash `json:"-"`?
// The struct tag `json:"-"` tells encoding/json to NEVER serialize the field.
// Every read path that returns a user to a client goes through JSON encoding,
// so the hash physically cannot leak into a response — even if a handler
// forgets to sanitize. Defense at the type level beats discipline.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Email        string    `json:"email"        db:"email"`
	PasswordHash string    `json:"-"            db:"password_hash"` // bcrypt hash, never exposed
	Name         string    `json:"name"         db:"name"`
	Role         string    `json:"role"         db:"role"`       // always "user" today; stored for forward-compat
	GitHubID     int64     `json:"-"            db:"github_id"`  // 0 unless the account came from OAuth
	AvatarURL    string    `json:"avatarUrl"    db:"avatar_url"` // profile picture (may be empty)
	Newsletter   bool      `json:"newsletter"   db:"newsletter"` // marketing email opt-in
	Active       bool      `json:"active"       db:"active"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// Principal returns the sanitized, role-tagged view of this account that is
// safe to embed in API responses and token claims.
func (u *User) Principal() *Principal {
	return &Principal{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  "user",
	}
}
