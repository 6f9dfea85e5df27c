// Package service — authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → User/Admin repositories (DB)
//	                   ↘ TokenService (JWT) + PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Turn credentials into sessions: visitor login, admin login, signup,
//     GitHub OAuth completion, first-run admin bootstrap
//   - Turn cookies back into identities: Identify verifies a token AND
//     re-fetches the account, so deleted accounts are locked out immediately
//   - Keep every auth rule in one place, away from HTTP concerns
//
// WHAT THIS LAYER DOES NOT DO:
//   - It does NOT set cookies (that's the handler's job — HTTP concern)
//   - It does NOT read HTTP requests
//   - It is NOT tied to chi or any routing framework
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ridwan/agency-site/internal/apperror"
	"github.com/ridwan/agency-site/internal/auth"
	"github.com/ridwan/agency-site/internal/model"
	"github.com/ridwan/agency-site/internal/repository"
)

// AuthService handles the authentication business logic for both identity
// kinds. One service, role as a parameter — the user and admin flows share
// every line that can be shared.
type AuthService struct {
	users     repository.UserRepository
	admins    repository.AdminRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// compile-time check: AuthService satisfies the middleware's Identifier
// contract, so it can be mounted directly as the session resolver.
var _ auth.Identifier = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	admins repository.AdminRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		admins:    admins,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by every operation that establishes a session.
// It bundles the sanitized identity, the signed token, and the role so the
// HTTP handler can set the right cookie and respond in one step.
type AuthResult struct {
	User  *model.Principal
	Token string
	Role  auth.Role
}

// Login authenticates a visitor by email+password and issues a user token.
//
// ENUMERATION RESISTANCE:
// "No such email", "account deactivated", and "wrong password" all return
// the SAME generic error. The real reason goes to the server log only — a
// client probing the login endpoint learns nothing about which emails have
// accounts. Validation errors (empty fields) are different: those describe
// the request, not the account, so they stay specific.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed: unknown email", slog.String("email", email))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	if !user.Active {
		s.logger.Info("login failed: account deactivated", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: wrong password", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	return s.issueFor(user.Principal(), auth.RoleUser)
}

// AdminLogin authenticates a back-office operator by username+password and
// issues an admin token.
//
// THE ZERO-ADMINS SPECIAL CASE:
// A store with no admin accounts at all is a first-run installation, not a
// failed login. It gets the distinguishable ErrNoAdmins so the UI can route
// the operator to the setup flow. Once at least one admin exists, every
// failure collapses to the same generic credentials error as visitor login.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: counting admins: %w", err)
	}
	if count == 0 {
		s.logger.Warn("admin login attempted with zero admin accounts")
		return nil, apperror.NoAdmins()
	}

	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("admin login failed: unknown username", slog.String("username", username))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up admin by username: %w", err)
	}

	if err := s.passwords.Verify(admin.PasswordHash, password); err != nil {
		s.logger.Info("admin login failed: wrong password", slog.String("adminID", admin.ID))
		return nil, apperror.InvalidCredentials()
	}

	// Best-effort: a failed timestamp write should not undo a valid login.
	if err := s.admins.TouchLastLogin(ctx, admin.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record admin last login",
			slog.String("adminID", admin.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("admin authenticated", slog.String("adminID", admin.ID), slog.String("username", admin.Username))

	return s.issueFor(admin.Principal(), auth.RoleAdmin)
}

// Signup creates a visitor account and immediately issues a session —
// an account you just created should not demand a second round trip to use.
func (s *AuthService) Signup(ctx context.Context, email, password, name string, newsletter bool) (*AuthResult, error) {
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if len(password) < 8 {
		return nil, apperror.ValidationFailed("password", "password must be at least 8 characters")
	}
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	// Friendly pre-check for a helpful 409. The UNIQUE constraint in the
	// store is the real enforcement — two concurrent signups for the same
	// email both pass this check and the constraint picks the winner, which
	// comes back as the same conflict error.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("user", email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email availability: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Newsletter:   newsletter,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))

	return s.issueFor(user.Principal(), auth.RoleUser)
}

// BootstrapAdmin creates the FIRST back-office account. It only works while
// zero admins exist; afterwards it is locked forever — further admins are
// created from inside the back-office by an authenticated admin.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, email, password string) (*model.Principal, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if len(password) < 8 {
		return nil, apperror.ValidationFailed("password", "password must be at least 8 characters")
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: counting admins: %w", err)
	}
	if count > 0 {
		return nil, apperror.Forbidden("setup is complete; admin accounts already exist")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	admin := &model.Admin{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("service/auth: creating first admin: %w", err)
	}

	s.logger.Info("first admin created", slog.String("adminID", admin.ID), slog.String("username", admin.Username))

	return admin.Principal(), nil
}

// NeedsSetup reports whether the back-office has never been set up (zero
// admin accounts). The login page calls this to decide between showing the
// login form and the first-run setup form.
func (s *AuthService) NeedsSetup(ctx context.Context) (bool, error) {
	count, err := s.admins.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("service/auth: counting admins: %w", err)
	}
	return count == 0, nil
}

// LoginOrRegisterGitHub completes the GitHub OAuth callback: upsert the
// visitor account keyed on the stable GitHub id, then issue a user session.
// First sign-in creates the account; later sign-ins refresh name/avatar in
// case they changed on GitHub.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}
	email := ghUser.Email
	if email == "" {
		// GitHub lets users hide their email. We still need a unique value
		// for the email column, so fall back to the noreply convention.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}

	user := &model.User{
		Email:     email,
		Name:      name,
		GitHubID:  ghUser.ID,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.Int64("githubID", ghUser.ID),
	)

	return s.issueFor(user.Principal(), auth.RoleUser)
}

// ChangePassword re-hashes a visitor's password after verifying the current
// one. The current-password check means a stolen session cookie alone is not
// enough to lock the owner out of their account.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if next == "" {
		return apperror.ValidationFailed("newPassword", "new password is required")
	}
	if len(next) < 8 {
		return apperror.ValidationFailed("newPassword", "password must be at least 8 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.InvalidCredentials()
		}
		return fmt.Errorf("service/auth: looking up user %s: %w", userID, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		s.logger.Info("password change failed: wrong current password", slog.String("userID", userID))
		return apperror.InvalidCredentials()
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/auth: hashing new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password for user %s: %w", userID, err)
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

// DeleteAccount removes a visitor account. Dependent records (the user's job
// applications) go with it via the storage-level cascade. Admin accounts are
// not deletable through this path.
func (s *AuthService) DeleteAccount(ctx context.Context, session *auth.Session) error {
	if session == nil || !session.Authenticated || session.User == nil {
		return apperror.InvalidCredentials()
	}
	if session.IsAdmin {
		return apperror.Forbidden("admin accounts cannot be deleted through account deletion")
	}

	if err := s.users.Delete(ctx, session.User.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Already gone — deletion is idempotent from the client's view.
			return nil
		}
		return fmt.Errorf("service/auth: deleting user %s: %w", session.User.ID, err)
	}

	s.logger.Info("account deleted", slog.String("userID", session.User.ID))
	return nil
}

// tokenAttempt pairs a cookie value with the role it would have to verify
// as. Identify walks an ordered list of these — the precedence rule (user
// cookie first, then admin) is data, not buried control flow.
type tokenAttempt struct {
	token string
	role  auth.Role
}

// Identify resolves the request's cookies into a Session. This is the
// handler-level verifier: signature+expiry verification AND a re-fetch of the
// account from the store, so a deleted or deactivated account is rejected
// even while its token is still cryptographically valid.
//
// FAIL-THROUGH CHAINING:
// Each attempt that fails — missing cookie, bad signature, expired, account
// gone — simply falls through to the next. Only when every attempt fails is
// the request anonymous. No attempt failure is an error; anonymous is a
// normal answer, and store hiccups degrade to anonymous too (fail closed,
// logged server-side).
func (s *AuthService) Identify(ctx context.Context, userToken, adminToken string) *auth.Session {
	attempts := []tokenAttempt{
		{token: userToken, role: auth.RoleUser},
		{token: adminToken, role: auth.RoleAdmin},
	}

	for _, attempt := range attempts {
		if attempt.token == "" {
			continue
		}

		claims, err := s.tokens.Verify(attempt.token, attempt.role)
		if err != nil {
			continue
		}

		principal, err := s.refetch(ctx, claims.Subject, attempt.role)
		if err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				s.logger.Error("identity re-fetch failed",
					slog.String("role", string(attempt.role)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		return &auth.Session{
			Authenticated: true,
			IsAdmin:       attempt.role == auth.RoleAdmin,
			User:          principal,
		}
	}

	return auth.Anonymous()
}

// refetch loads the account behind a verified token's subject. A missing or
// deactivated account means the token's subject no longer exists for auth
// purposes — callers treat it as a failed attempt.
func (s *AuthService) refetch(ctx context.Context, id string, role auth.Role) (*model.Principal, error) {
	if role == auth.RoleAdmin {
		admin, err := s.admins.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return admin.Principal(), nil
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperror.NotFound("user", id)
	}
	return user.Principal(), nil
}

// issueFor signs a token for a principal and packages the result.
func (s *AuthService) issueFor(p *model.Principal, role auth.Role) (*AuthResult, error) {
	token, err := s.tokens.Issue(p.ID, role, p.Email, p.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing %s token for %s: %w", role, p.ID, err)
	}

	return &AuthResult{
		User:  p,
		Token: token,
		Role:  role,
	}, nil
}
