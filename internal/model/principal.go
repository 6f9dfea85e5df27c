package model

// Principal is the unified, role-tagged identity shared by users and admins.
//
// WHY A THIRD TYPE?
// User and Admin are storage records with different natural keys. Everything
// downstream of a successful authentication — token claims, the /me response,
// handler-level role checks — only cares about "who is this and what may they
// do". Principal is that answer, with the password hash already stripped and
// the id coerced to a plain string. One type means one code path through the
// token issuer and verifier instead of two near-identical copies.
//
// Email and Username are both optional: a user principal has an email, an
// admin principal has a username (and usually an email too).
type Principal struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
}

// IsAdmin reports whether this principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}
