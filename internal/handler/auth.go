package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/ridwan/agency-site/internal/apperror"
	"github.com/ridwan/agency-site/internal/auth"
	"github.com/ridwan/agency-site/internal/model"
	"github.com/ridwan/agency-site/internal/service"
)

// AuthHandler exposes the authentication API: visitor signup/login, admin
// login, logout, identity check, first-run setup, password change, account
// deletion, and the GitHub OAuth flow.
//
// DEPENDENCY CHAIN:
//   - svc     *service.AuthService → all credential/token business logic
//   - cookies *auth.CookieManager  → session cookie lifecycle
//   - github  *auth.GitHubProvider → OAuth code exchange (nil = OAuth disabled)
//
// The handler's own job is narrow: decode the request, call the service,
// set/clear cookies, shape the JSON response. Nothing else.
type AuthHandler struct {
	svc     *service.AuthService
	cookies *auth.CookieManager
	github  *auth.GitHubProvider
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	svc *service.AuthService,
	cookies *auth.CookieManager,
	github *auth.GitHubProvider,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		cookies: cookies,
		github:  github,
		logger:  logger,
	}
}

// authResponse is the success body for every session-establishing endpoint.
// The user field is a Principal — sanitized by construction, so the password
// hash can't appear here no matter what.
type authResponse struct {
	Success bool             `json:"success"`
	User    *model.Principal `json:"user,omitempty"`
	Message string           `json:"message,omitempty"`
}

// HandleSignup creates a visitor account.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email":"...","password":"...","name":"...","newsletter":false}
//
// On success: 201, the auth-token cookie is set, and the sanitized account
// comes back in the body. Duplicate email → 409.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		Name       string `json:"name"`
		Newsletter bool   `json:"newsletter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.svc.Signup(r.Context(), req.Email, req.Password, req.Name, req.Newsletter)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.Set(w, result.Role, result.Token)
	writeJSON(w, http.StatusCreated, authResponse{Success: true, User: result.User})
}

// HandleLogin authenticates a visitor.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email":"...","password":"..."}
//
// On success the auth-token cookie is set (HttpOnly, SameSite=Strict,
// max-age = 7 days). Every credential failure is the same 401 — see the
// service for the enumeration-resistance rules.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.Set(w, result.Role, result.Token)
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: result.User})
}

// HandleAdminLogin authenticates a back-office operator.
//
// HTTP: POST /api/auth/admin/login
// REQUEST BODY: {"username":"...","password":"..."}
//
// On success the admin-token cookie is set (max-age = 1 day). Against a store
// with zero admin accounts this returns 401 with {"noAdmins": true} so the
// UI can offer the setup flow.
func (h *AuthHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.svc.AdminLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.Set(w, result.Role, result.Token)
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: result.User})
}

// HandleLogout clears BOTH session cookies.
//
// HTTP: POST /api/auth/logout
//
// WHY POST AND NOT GET?
// Logout is a state-changing operation. Using GET would be vulnerable to
// CSRF and to browsers pre-fetching the URL. POST ensures intentional action.
//
// IDEMPOTENT BY DESIGN:
// Logout succeeds whether or not a session existed — there is nothing useful
// to tell a client who was already logged out except "done". Both cookie
// names are expired unconditionally; since tokens are stateless JWTs, the
// token itself stays technically valid until expiry, but without the cookie
// the browser can't send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearAll(w)
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "logged out"})
}

// HandleMe reports who the request is.
//
// HTTP: GET /api/auth/me
//
// This route sits behind the Identify middleware but NOT behind Require —
// it must answer anonymous requests itself, with a 401 whose body is the
// session contract ({"authenticated": false}), because the frontend calls it
// on every page load to decide what to render.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok || !session.Authenticated {
		writeJSON(w, http.StatusUnauthorized, auth.Anonymous())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// HandleSetup creates the FIRST admin account.
//
// HTTP: POST /api/auth/setup
// REQUEST BODY: {"username":"...","email":"...","password":"..."}
//
// Only works while zero admins exist; afterwards it returns 403 forever.
// No cookie is set — the operator logs in through the normal admin login with
// the credentials they just chose, which also proves the credentials work.
func (h *AuthHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	admin, err := h.svc.BootstrapAdmin(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Success: true, User: admin})
}

// HandleSetupStatus reports whether first-run setup is still open.
//
// HTTP: GET /api/auth/setup
//
// Public on purpose: the admin login page calls it to decide whether to show
// the login form or the setup form. It leaks only one bit — "has this
// installation ever been configured" — which the login endpoint reveals
// anyway via its noAdmins flag.
func (h *AuthHandler) HandleSetupStatus(w http.ResponseWriter, r *http.Request) {
	needsSetup, err := h.svc.NeedsSetup(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"needsSetup": needsSetup})
}

// HandleChangePassword changes the logged-in visitor's password.
//
// HTTP: POST /api/auth/password
// Auth: Require middleware (any authenticated identity reaches here, but
// admin sessions are rejected — admin credentials are managed in the
// back-office, not through the visitor account API).
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok || !session.Authenticated {
		writeJSON(w, http.StatusUnauthorized, auth.Anonymous())
		return
	}
	if session.IsAdmin {
		writeError(w, apperror.Forbidden("admin passwords are managed in the back-office"))
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.svc.ChangePassword(r.Context(), session.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "password changed"})
}

// HandleDeleteAccount deletes the logged-in visitor's account and ends the
// session. Dependent records (job applications) cascade away in the store.
//
// HTTP: DELETE /api/auth/account
// Auth: Require middleware
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok || !session.Authenticated {
		writeJSON(w, http.StatusUnauthorized, auth.Anonymous())
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), session); err != nil {
		writeError(w, err)
		return
	}

	// The account is gone; the cookies must go with it.
	h.cookies.ClearAll(w)
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "account deleted"})
}

// HandleGitHubLogin redirects the visitor to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When GitHub calls back, HandleGitHubCallback verifies the state matches.
// This proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.ValidationFailed("oauth", "GitHub sign-in is not configured"))
		return
	}

	// Generate a random, unguessable state value
	state := xid.New().String()

	// Store it in a cookie so we can verify it on callback.
	// SameSite=Lax (not Strict): the callback arrives as a top-level
	// navigation FROM github.com, and Strict cookies are not sent on
	// cross-site navigations at all.
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the visitor account, issue the auth-token cookie
//  4. Redirect to the home page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.ValidationFailed("oauth", "GitHub sign-in is not configured"))
		return
	}

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// Check if GitHub sent an error (visitor denied authorization)
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 3: Upsert the account and issue the session cookie ---
	result, err := h.svc.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("oauth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.cookies.Set(w, result.Role, result.Token)

	// --- Step 4: Redirect to the site ---
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
