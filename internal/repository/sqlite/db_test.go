package sqlite

import (
	"testing"
)

// newTestDB creates an in-memory SQLite database for testing.
//
// ":memory:" creates a fresh database that lives only in RAM and disappears
// when closed — perfect for tests: fast, isolated, no cleanup files.
// Migrations run inside New(), so every test starts with the full schema.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// t.Cleanup registers a function to run when the test finishes —
	// like defer, but tied to the test lifecycle.
	t.Cleanup(func() {
		db.Close()
	})

	return db
}
