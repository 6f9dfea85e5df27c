package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ridwan/agency-site/internal/apperror"
	"github.com/ridwan/agency-site/internal/auth"
	"github.com/ridwan/agency-site/internal/model"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// Hand-written in-memory fakes for both repository interfaces. No mock
// framework — you can see exactly what each method does, and the error
// injection fields make "database down" one assignment away.

type mockUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// set to a non-nil error to simulate a store failure
	getByIDErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	if user.Role == "" {
		user.Role = "user"
	}
	user.Active = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return apperror.ValidationFailed("githubId", "github id is required")
	}
	for _, u := range m.users {
		if u.GitHubID == user.GitHubID {
			u.Email = user.Email
			u.Name = user.Name
			u.AvatarURL = user.AvatarURL
			*user = *u
			return nil
		}
	}
	return m.Create(context.Background(), user)
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

type mockAdminRepo struct {
	admins map[string]*model.Admin // keyed by internal ID
	nextID int

	countErr  error
	touchErr  error
	touchedID string
	touchedAt time.Time
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{admins: make(map[string]*model.Admin)}
}

func (m *mockAdminRepo) Create(_ context.Context, admin *model.Admin) error {
	for _, a := range m.admins {
		if a.Username == admin.Username {
			return apperror.Conflict("admin", admin.Username)
		}
	}
	m.nextID++
	admin.ID = fmt.Sprintf("admin-%d", m.nextID)
	admin.Role = "admin"
	admin.CreatedAt = time.Now()
	admin.UpdatedAt = time.Now()
	stored := *admin
	m.admins[admin.ID] = &stored
	return nil
}

func (m *mockAdminRepo) GetByUsername(_ context.Context, username string) (*model.Admin, error) {
	for _, a := range m.admins {
		if a.Username == username {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("admin", username)
}

func (m *mockAdminRepo) GetByID(_ context.Context, id string) (*model.Admin, error) {
	a, ok := m.admins[id]
	if !ok {
		return nil, apperror.NotFound("admin", id)
	}
	result := *a
	return &result, nil
}

func (m *mockAdminRepo) Count(_ context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.admins), nil
}

func (m *mockAdminRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	if _, ok := m.admins[id]; !ok {
		return apperror.NotFound("admin", id)
	}
	m.touchedID = id
	m.touchedAt = at
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

// newTestAuthService returns an AuthService wired with mock repositories.
func newTestAuthService(t *testing.T, users *mockUserRepo, admins *mockAdminRepo) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService(auth.Config{Secret: "test-secret-at-least-16-chars!!"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	ps := auth.NewPasswordServiceWithCost(4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(users, admins, ts, ps, logger)
}

// seedUser hashes the password and plants an account directly in the mock.
func seedUser(t *testing.T, users *mockUserRepo, email, password string) *model.User {
	t.Helper()
	hash, err := auth.NewPasswordServiceWithCost(4).Hash(password)
	if err != nil {
		t.Fatalf("hashing seed password: %v", err)
	}
	user := &model.User{Email: email, PasswordHash: hash, Name: "Seed Person"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func seedAdmin(t *testing.T, admins *mockAdminRepo, username, password string) *model.Admin {
	t.Helper()
	hash, err := auth.NewPasswordServiceWithCost(4).Hash(password)
	if err != nil {
		t.Fatalf("hashing seed password: %v", err)
	}
	admin := &model.Admin{Username: username, PasswordHash: hash, Email: username + "@example.com"}
	if err := admins.Create(context.Background(), admin); err != nil {
		t.Fatalf("seeding admin: %v", err)
	}
	return admin
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "visitor@example.com", "correct-password")

	result, err := svc.Login(context.Background(), "visitor@example.com", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if result.User == nil || result.User.ID != seeded.ID {
		t.Errorf("Login() user = %+v, want the seeded account", result.User)
	}
	if result.Token == "" {
		t.Error("Login() returned empty token")
	}
	if result.Role != auth.RoleUser {
		t.Errorf("Login() role = %q, want %q", result.Role, auth.RoleUser)
	}
}

func TestLogin_ValidationErrors(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "password"},
		{"empty password", "a@example.com", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.email, tc.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Login() error = %v, want ErrValidation", err)
			}
		})
	}
}

// The enumeration-resistance contract: unknown email, wrong password, and a
// deactivated account must be INDISTINGUISHABLE from the client's side.
func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seedUser(t, users, "known@example.com", "right-password")
	inactive := seedUser(t, users, "dormant@example.com", "right-password")
	users.users[inactive.ID].Active = false

	_, errUnknown := svc.Login(context.Background(), "unknown@example.com", "whatever")
	_, errWrongPw := svc.Login(context.Background(), "known@example.com", "wrong-password")
	_, errInactive := svc.Login(context.Background(), "dormant@example.com", "right-password")

	for name, err := range map[string]error{
		"unknown email":       errUnknown,
		"wrong password":      errWrongPw,
		"deactivated account": errInactive,
	} {
		if !errors.Is(err, apperror.ErrAuthentication) {
			t.Errorf("%s: error = %v, want ErrAuthentication", name, err)
		}
	}

	if errUnknown.Error() != errWrongPw.Error() || errWrongPw.Error() != errInactive.Error() {
		t.Errorf("failure messages differ: %q / %q / %q — credential probing must learn nothing",
			errUnknown.Error(), errWrongPw.Error(), errInactive.Error())
	}
}

// =========================================================================
// AdminLogin TESTS
// =========================================================================

func TestAdminLogin_Success(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)
	seeded := seedAdmin(t, admins, "boss", "admin-password")

	result, err := svc.AdminLogin(context.Background(), "boss", "admin-password")
	if err != nil {
		t.Fatalf("AdminLogin() error = %v", err)
	}

	if result.Role != auth.RoleAdmin {
		t.Errorf("AdminLogin() role = %q, want %q", result.Role, auth.RoleAdmin)
	}
	if result.User.Username != "boss" {
		t.Errorf("User.Username = %q, want %q", result.User.Username, "boss")
	}
	// A successful login records the moment.
	if admins.touchedID != seeded.ID {
		t.Errorf("TouchLastLogin recorded id %q, want %q", admins.touchedID, seeded.ID)
	}
}

func TestAdminLogin_ZeroAdminsIsDistinguishable(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	_, err := svc.AdminLogin(context.Background(), "anyone", "anything")

	// A first-run installation is not a failed login — the UI needs to know
	// to offer setup instead.
	if !errors.Is(err, apperror.ErrNoAdmins) {
		t.Fatalf("AdminLogin() with zero admins error = %v, want ErrNoAdmins", err)
	}
}

func TestAdminLogin_FailuresAreIndistinguishable(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)
	seedAdmin(t, admins, "boss", "right-password")

	_, errUnknown := svc.AdminLogin(context.Background(), "ghost", "whatever")
	_, errWrongPw := svc.AdminLogin(context.Background(), "boss", "wrong-password")

	if !errors.Is(errUnknown, apperror.ErrAuthentication) {
		t.Errorf("unknown username error = %v, want ErrAuthentication", errUnknown)
	}
	if !errors.Is(errWrongPw, apperror.ErrAuthentication) {
		t.Errorf("wrong password error = %v, want ErrAuthentication", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("failure messages differ: %q vs %q", errUnknown.Error(), errWrongPw.Error())
	}
}

func TestAdminLogin_SurvivesLastLoginWriteFailure(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)
	seedAdmin(t, admins, "boss", "admin-password")
	admins.touchErr = errors.New("disk full")

	// Recording the timestamp is best-effort; the login still succeeds.
	result, err := svc.AdminLogin(context.Background(), "boss", "admin-password")
	if err != nil {
		t.Fatalf("AdminLogin() error = %v, want success despite timestamp failure", err)
	}
	if result.Token == "" {
		t.Error("AdminLogin() returned empty token")
	}
}

// =========================================================================
// Signup TESTS
// =========================================================================

func TestSignup_Success(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())

	result, err := svc.Signup(context.Background(), "new@example.com", "long-enough-pw", "New Person", true)
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	// Signup issues a session immediately — no second round trip to log in.
	if result.Token == "" {
		t.Error("Signup() returned empty token")
	}
	if result.Role != auth.RoleUser {
		t.Errorf("Signup() role = %q, want %q", result.Role, auth.RoleUser)
	}
	if result.User.Email != "new@example.com" {
		t.Errorf("User.Email = %q, want %q", result.User.Email, "new@example.com")
	}

	// And the account is really in the store, password hashed.
	stored, err := users.GetByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() after signup: %v", err)
	}
	if stored.PasswordHash == "long-enough-pw" {
		t.Error("Signup() stored the plaintext password")
	}
	if !stored.Newsletter {
		t.Error("Signup() dropped the newsletter opt-in")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seedUser(t, users, "taken@example.com", "whatever-pw")

	_, err := svc.Signup(context.Background(), "taken@example.com", "long-enough-pw", "Second", false)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Signup() error = %v, want ErrConflict", err)
	}
}

func TestSignup_ValidationErrors(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	cases := []struct {
		name        string
		email       string
		password    string
		displayName string
	}{
		{"empty email", "", "long-enough-pw", "Name"},
		{"empty password", "a@example.com", "", "Name"},
		{"short password", "a@example.com", "short", "Name"},
		{"empty name", "a@example.com", "long-enough-pw", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.email, tc.password, tc.displayName, false)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Signup() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// BootstrapAdmin / NeedsSetup TESTS
// =========================================================================

func TestBootstrapAdmin_FirstAdmin(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)

	principal, err := svc.BootstrapAdmin(context.Background(), "boss", "boss@example.com", "long-enough-pw")
	if err != nil {
		t.Fatalf("BootstrapAdmin() error = %v", err)
	}
	if principal.Username != "boss" {
		t.Errorf("Username = %q, want %q", principal.Username, "boss")
	}
	if principal.Role != "admin" {
		t.Errorf("Role = %q, want %q", principal.Role, "admin")
	}
}

func TestBootstrapAdmin_LockedOnceAdminsExist(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)
	seedAdmin(t, admins, "existing", "whatever-pw")

	_, err := svc.BootstrapAdmin(context.Background(), "intruder", "i@example.com", "long-enough-pw")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("BootstrapAdmin() with existing admins error = %v, want ErrForbidden", err)
	}
}

func TestNeedsSetup(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)

	needs, err := svc.NeedsSetup(context.Background())
	if err != nil {
		t.Fatalf("NeedsSetup() error = %v", err)
	}
	if !needs {
		t.Error("NeedsSetup() = false on an empty store, want true")
	}

	seedAdmin(t, admins, "boss", "whatever-pw")

	needs, err = svc.NeedsSetup(context.Background())
	if err != nil {
		t.Fatalf("NeedsSetup() error = %v", err)
	}
	if needs {
		t.Error("NeedsSetup() = true with an admin present, want false")
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Name:      "The Octocat",
		Email:     "octocat@github.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/42",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.Token == "" {
		t.Error("LoginOrRegisterGitHub() returned empty token")
	}
	if result.Role != auth.RoleUser {
		t.Errorf("role = %q, want %q — OAuth sign-ins are visitor sessions", result.Role, auth.RoleUser)
	}
	if result.User.Name != "The Octocat" {
		t.Errorf("User.Name = %q, want %q", result.User.Name, "The Octocat")
	}
}

func TestLoginOrRegisterGitHub_FallbacksForHiddenProfile(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())

	// GitHub lets users hide both name and email.
	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:    7,
		Login: "ghost",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.User.Name != "ghost" {
		t.Errorf("Name = %q, want the login as fallback", result.User.Name)
	}
	if result.User.Email != "7+ghost@users.noreply.github.com" {
		t.Errorf("Email = %q, want the noreply fallback", result.User.Email)
	}
}

func TestLoginOrRegisterGitHub_NilUser(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub(nil) should return an error")
	}
}

// =========================================================================
// ChangePassword TESTS
// =========================================================================

func TestChangePassword_Success(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "visitor@example.com", "old-password")

	err := svc.ChangePassword(context.Background(), seeded.ID, "old-password", "new-password-1")
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	// The old password no longer works, the new one does.
	if _, err := svc.Login(context.Background(), "visitor@example.com", "old-password"); err == nil {
		t.Error("Login() with the old password should fail after a change")
	}
	if _, err := svc.Login(context.Background(), "visitor@example.com", "new-password-1"); err != nil {
		t.Errorf("Login() with the new password failed: %v", err)
	}
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "visitor@example.com", "old-password")

	// A stolen cookie alone must not be enough to take over the account.
	err := svc.ChangePassword(context.Background(), seeded.ID, "not-the-password", "new-password-1")
	if !errors.Is(err, apperror.ErrAuthentication) {
		t.Errorf("ChangePassword() error = %v, want ErrAuthentication", err)
	}
}

func TestChangePassword_ShortNewPassword(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "visitor@example.com", "old-password")

	err := svc.ChangePassword(context.Background(), seeded.ID, "old-password", "short")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ChangePassword() error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// DeleteAccount TESTS
// =========================================================================

func TestDeleteAccount_Success(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "gone@example.com", "whatever-pw")

	session := &auth.Session{Authenticated: true, User: seeded.Principal()}
	if err := svc.DeleteAccount(context.Background(), session); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}

	if _, err := users.GetByID(context.Background(), seeded.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteAccount_IdempotentWhenAlreadyGone(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "gone@example.com", "whatever-pw")

	session := &auth.Session{Authenticated: true, User: seeded.Principal()}
	if err := svc.DeleteAccount(context.Background(), session); err != nil {
		t.Fatalf("first DeleteAccount() error = %v", err)
	}
	// Second delete of the same account: already gone is success.
	if err := svc.DeleteAccount(context.Background(), session); err != nil {
		t.Errorf("second DeleteAccount() error = %v, want nil", err)
	}
}

func TestDeleteAccount_RejectsAdminSessions(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	session := &auth.Session{
		Authenticated: true,
		IsAdmin:       true,
		User:          &model.Principal{ID: "admin-1", Role: "admin"},
	}
	err := svc.DeleteAccount(context.Background(), session)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("DeleteAccount() for an admin session error = %v, want ErrForbidden", err)
	}
}

func TestDeleteAccount_RejectsAnonymous(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	for name, session := range map[string]*auth.Session{
		"nil session":       nil,
		"anonymous session": auth.Anonymous(),
	} {
		if err := svc.DeleteAccount(context.Background(), session); !errors.Is(err, apperror.ErrAuthentication) {
			t.Errorf("%s: DeleteAccount() error = %v, want ErrAuthentication", name, err)
		}
	}
}

// =========================================================================
// Identify TESTS
// =========================================================================

func TestIdentify_UserToken(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "visitor@example.com", "whatever-pw")

	result, err := svc.Login(context.Background(), "visitor@example.com", "whatever-pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	session := svc.Identify(context.Background(), result.Token, "")

	if !session.Authenticated {
		t.Fatal("Identify() with a valid user token returned an anonymous session")
	}
	if session.IsAdmin {
		t.Error("Identify() marked a user session as admin")
	}
	if session.User.ID != seeded.ID {
		t.Errorf("session user = %q, want %q", session.User.ID, seeded.ID)
	}
}

func TestIdentify_AdminToken(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)
	seedAdmin(t, admins, "boss", "admin-password")

	result, err := svc.AdminLogin(context.Background(), "boss", "admin-password")
	if err != nil {
		t.Fatalf("AdminLogin() error = %v", err)
	}

	session := svc.Identify(context.Background(), "", result.Token)

	if !session.Authenticated || !session.IsAdmin {
		t.Fatalf("Identify() with a valid admin token = %+v, want an authenticated admin session", session)
	}
}

func TestIdentify_UserCookieWinsWhenBothPresent(t *testing.T) {
	users := newMockUserRepo()
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, users, admins)
	seedUser(t, users, "visitor@example.com", "user-password")
	seedAdmin(t, admins, "boss", "admin-password")

	userResult, err := svc.Login(context.Background(), "visitor@example.com", "user-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	adminResult, err := svc.AdminLogin(context.Background(), "boss", "admin-password")
	if err != nil {
		t.Fatalf("AdminLogin() error = %v", err)
	}

	// Both cookies valid: the user cookie is attempted first and wins.
	session := svc.Identify(context.Background(), userResult.Token, adminResult.Token)

	if session.IsAdmin {
		t.Error("Identify() resolved to the admin identity; the user cookie takes precedence")
	}
	if session.User.Email != "visitor@example.com" {
		t.Errorf("session user = %q, want the visitor", session.User.Email)
	}
}

func TestIdentify_FallsThroughToAdminToken(t *testing.T) {
	admins := newMockAdminRepo()
	svc := newTestAuthService(t, newMockUserRepo(), admins)
	seedAdmin(t, admins, "boss", "admin-password")

	result, err := svc.AdminLogin(context.Background(), "boss", "admin-password")
	if err != nil {
		t.Fatalf("AdminLogin() error = %v", err)
	}

	// A garbage user cookie must not mask a valid admin cookie.
	session := svc.Identify(context.Background(), "garbage-user-token", result.Token)

	if !session.Authenticated || !session.IsAdmin {
		t.Fatalf("Identify() = %+v, want the admin session via fall-through", session)
	}
}

func TestIdentify_NoTokensIsAnonymous(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	session := svc.Identify(context.Background(), "", "")

	if session.Authenticated {
		t.Error("Identify() with no tokens returned an authenticated session")
	}
}

func TestIdentify_GarbageTokensAreAnonymous(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), newMockAdminRepo())

	session := svc.Identify(context.Background(), "not-a-jwt", "also-not-a-jwt")

	if session.Authenticated {
		t.Error("Identify() with garbage tokens returned an authenticated session")
	}
}

func TestIdentify_DeletedUserRejected(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "gone@example.com", "whatever-pw")

	result, err := svc.Login(context.Background(), "gone@example.com", "whatever-pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// Delete the account while its token is still cryptographically valid.
	if err := users.Delete(context.Background(), seeded.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	session := svc.Identify(context.Background(), result.Token, "")

	// The store re-fetch is what locks deleted accounts out immediately.
	if session.Authenticated {
		t.Error("Identify() authenticated a deleted account holding an unexpired token")
	}
}

func TestIdentify_DeactivatedUserRejected(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seeded := seedUser(t, users, "dormant@example.com", "whatever-pw")

	result, err := svc.Login(context.Background(), "dormant@example.com", "whatever-pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	users.users[seeded.ID].Active = false

	session := svc.Identify(context.Background(), result.Token, "")

	if session.Authenticated {
		t.Error("Identify() authenticated a deactivated account")
	}
}

func TestIdentify_StoreFailureDegradesToAnonymous(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users, newMockAdminRepo())
	seedUser(t, users, "visitor@example.com", "whatever-pw")

	result, err := svc.Login(context.Background(), "visitor@example.com", "whatever-pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	users.getByIDErr = errors.New("connection refused")

	// Fail closed: a broken store means nobody is authenticated, never a
	// guess in the caller's favor.
	session := svc.Identify(context.Background(), result.Token, "")

	if session.Authenticated {
		t.Error("Identify() authenticated a session while the store was down")
	}
}
