// Package auth provides JWT token issuing/verification, bcrypt password
// hashing, the session cookie lifecycle, and the request-level middleware and
// page gate for the agency site and its admin back-office.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. A visitor logs in with email+password (POST /api/auth/login), or an
//    operator logs in with username+password (POST /api/auth/admin/login)
// 2. The server verifies the credentials against the stored bcrypt hash,
//    issues a signed JWT, and stores it in an HttpOnly cookie — "auth-token"
//    for visitors, "admin-token" for operators
// 3. On subsequent requests, middleware reads whichever cookie is present,
//    validates the JWT, re-fetches the account, and puts the identity in the
//    request context
// 4. Page navigation to protected prefixes (/admin, /account) is intercepted
//    earlier by the Gate, which does a cheap signature check and redirects to
//    the login page on failure
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store session
// data. All the information needed (subject, role, expiry) is inside the
// signed token. The signature ensures nobody can tamper with it without the
// secret key. The flip side: there is no server-side revocation list. A token
// dies by expiry or by the browser losing the cookie, nothing else.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"id","role":"admin","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The server can verify the signature without any DB lookup — just the secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role tags a token (and the principal behind it) as belonging to one of the
// two identity kinds. Users and admins get different cookies and different
// token lifetimes, but flow through the SAME issuer/verifier code — the role
// is a parameter, not a reason to fork the logic.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Default token lifetimes per role. A visitor session is cheap to keep alive
// for a week; an admin session can mutate everything on the site, so it gets
// one day.
const (
	DefaultUserTokenTTL  = 7 * 24 * time.Hour
	DefaultAdminTokenTTL = 24 * time.Hour
)

// Cookie names per role. Two independent cookies mean a browser can hold a
// visitor session and an admin session at the same time without either
// clobbering the other.
const (
	UserCookieName  = "auth-token"
	AdminCookieName = "admin-token"
)

// CookieName returns the session cookie name for a role.
func CookieName(role Role) string {
	if role == RoleAdmin {
		return AdminCookieName
	}
	return UserCookieName
}

// Config carries everything the auth layer needs, injected explicitly.
//
// WHY A CONFIG STRUCT INSTEAD OF os.Getenv INSIDE THE PACKAGE?
// Reading the environment ambiently makes the issuer untestable — every test
// would race over process-global state. main reads the environment ONCE,
// builds a Config, and passes it down. Tests build their own Config with a
// deterministic secret and whatever TTLs the scenario needs (including
// negative ones, to mint already-expired tokens).
type Config struct {
	// Secret is the HMAC signing key. At least 16 characters; use 32+ bytes
	// of randomness in production: JWT_SECRET=$(openssl rand -hex 32)
	Secret string

	// Production toggles the Secure attribute on session cookies.
	Production bool

	// Token lifetimes; zero values fall back to the role defaults above.
	UserTokenTTL  time.Duration
	AdminTokenTTL time.Duration
}

// Claims is the JWT payload. It embeds jwt.RegisteredClaims (Subject,
// ExpiresAt, IssuedAt, Issuer) and adds the identity fields the site needs:
// which kind of account this is (Role) and its natural key (Email for users,
// Username for admins).
//
// "sub" carries the internal record id — the verifier re-fetches the account
// by it, so a deleted account invalidates every outstanding token even though
// the signatures still check out.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// tokenIssuer is the "iss" claim value. Verification requires it, so tokens
// minted by other apps that happen to share a secret are still rejected.
const tokenIssuer = "agency-site"

// TokenService issues and verifies the site's JWTs for both roles.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations — keep it safe, rotate it
// periodically in production.
type TokenService struct {
	secret []byte
	ttl    map[Role]time.Duration

	// now is the clock. Overridable in tests to simulate "verify this token
	// one day and one second after it was issued" without sleeping.
	now func() time.Time
}

// NewTokenService creates a TokenService from the given config.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(cfg Config) (*TokenService, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}

	userTTL := cfg.UserTokenTTL
	if userTTL == 0 {
		userTTL = DefaultUserTokenTTL
	}
	adminTTL := cfg.AdminTokenTTL
	if adminTTL == 0 {
		adminTTL = DefaultAdminTokenTTL
	}

	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl: map[Role]time.Duration{
			RoleUser:  userTTL,
			RoleAdmin: adminTTL,
		},
		now: time.Now,
	}, nil
}

// Lifetime returns the configured token lifetime for a role. The cookie
// MaxAge is derived from this, so token expiry and cookie expiry always agree.
func (s *TokenService) Lifetime(role Role) time.Duration {
	return s.ttl[role]
}

// Issue creates and signs a JWT for the given identity.
//
// The subject is the internal record id; email/username ride along so the
// gate and logs can name the session without a DB hit. Expiry comes from the
// per-role lifetime table.
//
// Signing algorithm: HS256 (HMAC-SHA256)
// - Symmetric: same key for signing and verifying
// - Fast and simple — good for single-server deployments
func (s *TokenService) Issue(id string, role Role, email, username string) (string, error) {
	if id == "" {
		return "", errors.New("auth: cannot issue a token without a subject id")
	}

	now := s.now()
	c := Claims{
		Email:    email,
		Username: username,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl[role])),
			Issuer:    tokenIssuer,
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a JWT string, additionally requiring that the
// token was minted for the expected role. A perfectly valid admin token
// presented where a user token is expected (or vice versa) fails — roles are
// not interchangeable.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "agency-site" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods
// prevents this.
func (s *TokenService) Verify(tokenStr string, role Role) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HS256
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		// Translate jwt library errors into cleaner messages
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	if c.Role != string(role) {
		return nil, fmt.Errorf("auth: token role %q, expected %q", c.Role, role)
	}

	return c, nil
}
