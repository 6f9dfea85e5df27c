package auth

import (
	"net/http"
	"strings"
)

// Gate is the pre-router interceptor protecting PAGE navigation to the
// back-office and account areas. It runs before any handler dispatch:
// requests whose path starts with an admin prefix must carry a verifiable
// admin-token cookie, requests under a user prefix must carry a verifiable
// auth-token cookie, and everything else passes through untouched.
//
// PAGES REDIRECT, APIS DON'T:
// A browser navigating to /admin/posts with no session should land on the
// login page, not stare at a JSON 401. The gate therefore ALWAYS redirects on
// failure. API routes are not in the gate's prefix sets — they get their JSON
// 401/403 from the Require/RequireAdmin middleware instead.
//
// SIGNATURE-ONLY CHECK — DELIBERATELY WEAKER THAN Identify:
// The gate verifies signature and expiry but does NOT re-fetch the account
// from the store; it runs on every matching navigation and a DB read per page
// view is the wrong trade. Consequence: a deleted account holding an
// unexpired cookie can still pass the gate, and is only turned away by
// handlers that identify against the store. That asymmetry is intentional —
// the gate is defense in depth, not the source of truth.
type Gate struct {
	tokens *TokenService

	adminPrefixes []string
	userPrefixes  []string

	adminLoginURL string
	userLoginURL  string
}

// GateConfig declares the protected path prefixes and where to send failures.
// The two prefix sets are matched independently; admin prefixes are checked
// first, and a path is expected to appear in at most one set.
type GateConfig struct {
	AdminPrefixes []string // e.g. ["/admin"]
	UserPrefixes  []string // e.g. ["/account"]
	AdminLoginURL string   // e.g. "/admin/login"
	UserLoginURL  string   // e.g. "/login"
}

// NewGate creates a Gate backed by the given TokenService.
func NewGate(tokens *TokenService, cfg GateConfig) *Gate {
	return &Gate{
		tokens:        tokens,
		adminPrefixes: cfg.AdminPrefixes,
		userPrefixes:  cfg.UserPrefixes,
		adminLoginURL: cfg.AdminLoginURL,
		userLoginURL:  cfg.UserLoginURL,
	}
}

// Middleware returns the gate as a standard chi-compatible middleware.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if loginURL, blocked := g.check(r); blocked {
			// 303 See Other: even a POST to a protected page degrades to a
			// plain GET of the login page.
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check decides whether the request may proceed. It returns the login URL to
// redirect to and true when the request must be blocked.
//
// The login pages themselves must never be gated — an admin prefix like
// "/admin" would otherwise trap /admin/login in a redirect loop.
func (g *Gate) check(r *http.Request) (string, bool) {
	path := r.URL.Path

	if path == g.adminLoginURL || path == g.userLoginURL {
		return "", false
	}

	if matchesPrefix(path, g.adminPrefixes) {
		if !g.verifies(r, RoleAdmin) {
			return g.adminLoginURL, true
		}
		return "", false
	}

	if matchesPrefix(path, g.userPrefixes) {
		if !g.verifies(r, RoleUser) {
			return g.userLoginURL, true
		}
		return "", false
	}

	return "", false
}

// verifies reports whether the request carries a cookie for the role that
// passes signature+expiry verification. Missing cookie, expired token, bad
// signature, wrong role — all just "no".
func (g *Gate) verifies(r *http.Request, role Role) bool {
	value := cookieValue(r, CookieName(role))
	if value == "" {
		return false
	}
	_, err := g.tokens.Verify(value, role)
	return err == nil
}

// matchesPrefix reports whether path starts with any of the given prefixes.
// "/admin" matches "/admin" itself and anything nested under it, but NOT
// "/administrivia" — a prefix match must end at a path boundary.
func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix {
			return true
		}
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) && path[len(prefix)] == '/' {
			return true
		}
	}
	return false
}
