// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside the Go binary as a single
// file. No separate database server to install, configure, or manage. For a
// marketing site's back-office (tens of writes a day, reads cached upstream)
// that is exactly the right amount of infrastructure.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — no C compiler needed, works
// everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql" — a generic interface for SQL
// databases. It works with any database through "drivers". Key types:
//   - sql.DB      — a connection pool (NOT a single connection!)
//   - sql.Row     — a single result row
//   - sql.Rows    — multiple result rows (must be closed!)
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. row.Scan(&field1, &field2)           → reads results into Go variables
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only"
	// import. The sqlite package's init() function registers itself with
	// database/sql as a driver named "sqlite". After this import,
	// sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. The identity repositories hang off it
// as sub-repositories: db.Users() implements repository.UserRepository and
// db.Admins() implements repository.AdminRepository, both sharing the one
// pool.
//
// WHY SUB-REPOSITORY TYPES INSTEAD OF METHODS DIRECTLY ON DB?
// Users and admins both need a Create/GetByID — Go allows one method name
// per receiver, so putting both repositories on *DB would force awkward
// CreateUser/CreateAdmin names everywhere. A tiny accessor per collection
// keeps the interfaces clean and the wiring obvious.
type DB struct {
	conn *sql.DB
}

// Users returns the visitor-account repository backed by this pool.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Admins returns the operator-account repository backed by this pool.
func (db *DB) Admins() *AdminDB {
	return &AdminDB{conn: db.conn}
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/site.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection — it just creates a pool
// manager. We call Ping() to force an immediate connection and verify it
// works, so a bad path surfaces here instead of on the first login.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// PRAGMA STATEMENTS:
	// SQLite has special "PRAGMA" commands that configure its behaviour.
	// These run once at connection time.

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes. WAL mode allows
	// concurrent reads WHILE a write is happening — important when every
	// request may re-fetch an identity during token verification.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// We need them ON: deleting a user must cascade to their job applications.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	// Run database migrations to create/update tables
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
// Wherever you call New(), immediately defer Close(). This ensures the
// connection is cleaned up even if a panic occurs.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent — safe on every startup. For this
// deployment shape (single binary, single file) that beats carrying a
// migration-tracking tool.
func (db *DB) migrate() error {
	// Visitor accounts. email is the natural key — UNIQUE is what actually
	// enforces the one-account-per-email invariant; the service-level
	// pre-check only exists to produce a friendly error message. Two
	// concurrent signups for the same email race past the pre-check and the
	// constraint decides the winner.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			name          TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'user',
			github_id     INTEGER NOT NULL DEFAULT 0,
			avatar_url    TEXT NOT NULL DEFAULT '',
			newsletter    INTEGER NOT NULL DEFAULT 0,
			active        INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Back-office operator accounts. Separate table from users on purpose —
	// different natural key (username), different session rules.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS admins (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'admin',
			last_login_at DATETIME,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating admins table: %w", err)
	}

	// Job applications submitted by logged-in visitors. ON DELETE CASCADE is
	// what makes account deletion take the user's applications with it — the
	// application code never has to remember.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS applications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			job_slug   TEXT NOT NULL,
			cover_note TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_applications_user_id ON applications(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating applications table: %w", err)
	}

	return nil
}
