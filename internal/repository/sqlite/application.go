package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/ridwan/agency-site/internal/model"
)

// CreateApplication records a job application for a user. The foreign key
// constraint rejects applications for ids that don't exist.
func (db *UserDB) CreateApplication(ctx context.Context, app *model.Application) error {
	app.ID = xid.New().String()
	app.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO applications (id, user_id, job_slug, cover_note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		app.ID,
		app.UserID,
		app.JobSlug,
		app.CoverNote,
		app.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting application for user %s: %w", app.UserID, err)
	}
	return nil
}

// CountApplications returns how many applications a user has submitted.
// After a user is deleted this is zero — the ON DELETE CASCADE took them.
func (db *UserDB) CountApplications(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting applications for user %s: %w", userID, err)
	}
	return count, nil
}
