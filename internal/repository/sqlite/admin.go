package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/ridwan/agency-site/internal/apperror"
	"github.com/ridwan/agency-site/internal/model"
	"github.com/ridwan/agency-site/internal/repository"
)

// AdminDB is the admins-collection repository. Construct via DB.Admins().
type AdminDB struct {
	conn *sql.DB
}

// compile-time check that *AdminDB implements repository.AdminRepository
var _ repository.AdminRepository = (*AdminDB)(nil)

const adminColumns = `id, username, password_hash, email, role, last_login_at, created_at, updated_at`

func scanAdmin(row *sql.Row) (*model.Admin, error) {
	var a model.Admin
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Email,
		&a.Role,
		&a.LastLoginAt, // *time.Time — sql handles NULL → nil
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new back-office operator account. The role column is
// forced to "admin" no matter what the caller put in the struct — there is
// exactly one admin role and it is not negotiable at insert time.
func (db *AdminDB) Create(ctx context.Context, admin *model.Admin) error {
	now := time.Now()
	admin.ID = xid.New().String()
	admin.Role = "admin"
	admin.CreatedAt = now
	admin.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO admins (id, username, password_hash, email, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		admin.ID,
		admin.Username,
		admin.PasswordHash,
		admin.Email,
		admin.Role,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("admin", admin.Username)
		}
		return fmt.Errorf("sqlite: inserting admin %s: %w", admin.Username, err)
	}

	return nil
}

// GetByUsername retrieves an admin by username — the admin login lookup.
// Returns apperror.ErrNotFound if no admin exists with that username.
func (db *AdminDB) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE username = ?`, username)

	a, err := scanAdmin(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("admin", username)
		}
		return nil, fmt.Errorf("sqlite: getting admin by username %s: %w", username, err)
	}
	return a, nil
}

// GetByID retrieves an admin by internal id — the token verification
// re-fetch for admin sessions.
func (db *AdminDB) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = ?`, id)

	a, err := scanAdmin(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("admin", id)
		}
		return nil, fmt.Errorf("sqlite: getting admin %s: %w", id, err)
	}
	return a, nil
}

// Count returns the number of admin accounts. Zero means the back-office has
// never been set up — admin login reports it distinctly so the UI can offer
// the bootstrap flow instead of "invalid credentials".
func (db *AdminDB) Count(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting admins: %w", err)
	}
	return count, nil
}

// TouchLastLogin records a successful admin login.
func (db *AdminDB) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET last_login_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("sqlite: touching last login for admin %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("admin", id)
	}
	return nil
}
