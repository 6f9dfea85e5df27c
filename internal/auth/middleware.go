package auth

import (
	"context"
	"net/http"

	"github.com/ridwan/agency-site/internal/model"
)

// Session is the contract every protected handler consumes: is this request
// authenticated, is it an admin, and who is it. An anonymous request gets
// {Authenticated: false} — that is a normal state, not an error.
type Session struct {
	Authenticated bool             `json:"authenticated"`
	IsAdmin       bool             `json:"isAdmin"`
	User          *model.Principal `json:"user,omitempty"`
}

// Anonymous is the session for a request with no (valid) token.
func Anonymous() *Session {
	return &Session{}
}

// Identifier resolves the two possible session cookies into a Session.
// Implemented by the auth service, which verifies the token AND re-fetches
// the account from the store. Resolution never errors: anything that goes
// wrong degrades to an anonymous session (fail closed).
type Identifier interface {
	Identify(ctx context.Context, userToken, adminToken string) *Session
}

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "session", s), ANY package that knows the string
// "session" can read or shadow your value. Using a package-private type
// prevents collisions: only THIS package can create a key of type contextKey,
// so only this package can read or write sessions in the context.
type contextKey string

const sessionKey contextKey = "session"

// Identify is a middleware that resolves the request's cookies into a Session
// and stores it in the context. It NEVER blocks the request — anonymous
// requests pass through with an anonymous session. Gating happens in Require
// and RequireAdmin, which read the session this middleware stored.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func Identify(ident Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := ident.Identify(r.Context(),
				cookieValue(r, UserCookieName),
				cookieValue(r, AdminCookieName),
			)

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require is a middleware that rejects anonymous requests with 401.
// Mount it inside an Identify-wrapped router on routes that need ANY
// authenticated identity (user or admin).
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok || !session.Authenticated {
			http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin is a middleware that rejects anyone but an authenticated
// admin: 401 for anonymous requests, 403 for an authenticated non-admin.
//
// 401 vs 403:
// 401 Unauthorized really means "unauthenticated — I don't know who you are".
// 403 Forbidden means "I know exactly who you are, and the answer is no".
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok || !session.Authenticated {
			http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
			return
		}
		if !session.IsAdmin {
			http.Error(w, `{"error":"forbidden","message":"admin access required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext retrieves the resolved session from the request context.
//
// Returns (nil, false) if the Identify middleware never ran on this route.
// On Identify-wrapped routes it always returns a session — possibly the
// anonymous one.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// cookieValue reads a cookie by name, returning "" when absent.
// http.ErrNoCookie is the ONLY error r.Cookie can return — a missing cookie
// is an everyday condition here, not something to propagate.
func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
