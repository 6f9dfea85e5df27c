package auth

import (
	"net/http"
)

// CookieManager owns the session cookie lifecycle: setting a cookie on login
// and clearing both cookies on logout.
//
// COOKIE ATTRIBUTES, AND WHY EACH ONE:
//   - HttpOnly: JavaScript cannot read the cookie, so an XSS bug can't
//     exfiltrate the token
//   - SameSite=Strict: the browser never sends the cookie on cross-site
//     requests, which kills CSRF on every state-changing endpoint
//   - Path=/: one session cookie for the whole site, pages and API alike
//   - Secure (production only): HTTPS-only transport; left off in local dev
//     so http://localhost keeps working
//   - MaxAge = token lifetime: the cookie and the JWT inside it expire
//     together, so the browser never sends a token that is already dead
type CookieManager struct {
	tokens     *TokenService
	production bool
}

// NewCookieManager creates a CookieManager. The TokenService supplies the
// per-role lifetimes; production controls the Secure attribute.
func NewCookieManager(tokens *TokenService, production bool) *CookieManager {
	return &CookieManager{tokens: tokens, production: production}
}

// Set writes the session cookie for a role: "auth-token" for users,
// "admin-token" for admins.
func (c *CookieManager) Set(w http.ResponseWriter, role Role, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(role),
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.tokens.Lifetime(role).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   c.production,
	})
}

// ClearAll expires BOTH session cookies unconditionally.
//
// WHY BOTH, ALWAYS?
// The server can't reliably tell which cookies the browser holds (a request
// may simply not have sent one), and logout must leave the client with no
// session whatsoever. Clearing a cookie that was never set is harmless, so
// logout expires both names every time. MaxAge -1 tells the browser to delete
// the cookie immediately.
//
// This also makes logout idempotent: calling it with no session at all still
// clears both names and still succeeds.
func (c *CookieManager) ClearAll(w http.ResponseWriter) {
	for _, role := range []Role{RoleUser, RoleAdmin} {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName(role),
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   c.production,
		})
	}
}
