package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/ridwan/agency-site/internal/apperror"
	"github.com/ridwan/agency-site/internal/model"
	"github.com/ridwan/agency-site/internal/repository"
)

// UserDB is the users-collection repository. Construct via DB.Users().
type UserDB struct {
	conn *sql.DB
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, email, password_hash, name, role, github_id, avatar_url, newsletter, active, created_at, updated_at`

// scanUser reads one user row. Shared by every user query so the column
// order lives in exactly one place (next to userColumns above).
func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.GitHubID,
		&u.AvatarURL,
		&u.Newsletter,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new visitor account.
//
// The id, timestamps, and default role are filled in here — callers provide
// the identity fields only. A duplicate email surfaces as apperror.Conflict:
// the UNIQUE constraint is the real enforcement (the service's friendly
// pre-check can always lose a race), so we translate the constraint error
// instead of trusting the pre-check.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = "user"
	}
	user.Active = true
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.GitHubID,
		user.AvatarURL,
		user.Newsletter,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByEmail retrieves a user by email — the login lookup.
// Matching is exact and case-sensitive, exactly as stored.
// Returns apperror.ErrNotFound if no user exists with that email.
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return u, nil
}

// GetByID retrieves a user by their internal id — the token verification
// re-fetch. Returns apperror.ErrNotFound if no user exists with that id.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// UpsertGitHub inserts or refreshes a visitor account keyed on its GitHub id.
//
// First OAuth sign-in → INSERT; every later sign-in → UPDATE of the profile
// fields GitHub may have changed (login email, name, avatar). The internal id
// never changes once assigned, so issued tokens stay valid across profile
// refreshes.
func (db *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return apperror.ValidationFailed("githubId", "github id is required")
	}

	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, name = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Email,
			user.Name,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	return db.Create(ctx, user)
}

// UpdatePassword replaces the stored hash for an account and bumps
// updated_at. Returns apperror.ErrNotFound if the id doesn't exist.
func (db *UserDB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// Delete removes a visitor account. The ON DELETE CASCADE on applications
// removes the user's submitted job applications in the same statement — no
// application-level cleanup loop.
func (db *UserDB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
// modernc.org/sqlite surfaces these as "constraint failed: UNIQUE ..." in the
// error text; matching on the message is the portable option for a pure-Go
// driver without exported error codes for this case.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
