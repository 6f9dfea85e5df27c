package model

import "time"

// Application is a job application submitted by a logged-in visitor.
// It exists here as the dependent record in the account lifecycle: deleting a
// user cascades to their applications at the storage layer.
type Application struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	JobSlug   string    `json:"jobSlug"   db:"job_slug"`
	CoverNote string    `json:"coverNote" db:"cover_note"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
