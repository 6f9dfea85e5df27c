package repository

import (
	"context"
	"time"

	"github.com/ridwan/agency-site/internal/model"
)

// UserRepository is the store contract for visitor accounts.
//
// GetByEmail serves the login lookup (exact, case-sensitive match as stored);
// GetByID serves token verification re-fetch; Delete cascades to the user's
// dependent records (job applications).
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpsertGitHub(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// AdminRepository is the store contract for back-office operator accounts.
//
// Count feeds the zero-admins bootstrap check; TouchLastLogin records the
// moment of each successful admin login.
type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)
	GetByID(ctx context.Context, id string) (*model.Admin, error)
	Count(ctx context.Context) (int, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
