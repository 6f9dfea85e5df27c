package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal the fields needed
// to create or refresh a visitor account.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64  `json:"id"`         // GitHub's numeric user ID — stable, never changes
	Login     string `json:"login"`      // GitHub username
	Name      string `json:"name"`       // Display name (may be empty)
	Email     string `json:"email"`      // Primary email (empty if hidden in GitHub settings)
	AvatarURL string `json:"avatar_url"` // Profile picture URL
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow — the site's "Sign in with GitHub" option for visitors. Admin accounts
// never go through OAuth; the back-office is credentials-only.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. The server redirects the visitor to GitHub's authorization endpoint,
//    with our ClientID and the requested scopes.
// 2. The visitor approves (or denies) the authorization request on GitHub.
// 3. GitHub redirects back to our CallbackURL with a short-lived "code".
// 4. The server exchanges the code for an access token (server-to-server).
// 5. The server uses the access token to call the GitHub API for user info.
//
// WHY SERVER-SIDE EXCHANGE?
// The code-for-token exchange happens server-to-server, using our
// ClientSecret. The access token never touches the visitor's browser.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// ClientID and ClientSecret come from registering an OAuth App at:
// https://github.com/settings/developers → "OAuth Apps" → "New OAuth App"
//
// callbackURL must match the configured "Authorization callback URL" exactly.
// Example: "http://localhost:8080/auth/github/callback"
//
// Scopes requested:
//   - "read:user" — the visitor's public profile (ID, login, name, avatar)
//   - "user:email" — the visitor's email addresses
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint, // pre-defined GitHub OAuth endpoints
		},
	}
}

// AuthURL returns the URL to redirect the visitor to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When GitHub calls back, we verify the returned state matches
// our cookie. This prevents CSRF attacks where an attacker tricks a browser
// into completing an OAuth flow for the attacker's account.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for a
// GitHub user profile. This is the core of the callback handler.
//
// Steps:
//  1. Exchange the code for an OAuth access token (server-to-server)
//  2. Use the token to call GitHub's /user API endpoint
//  3. Unmarshal the response into a GitHubUser struct
//
// The returned GitHubUser is handed to the auth service, which upserts the
// visitor account and issues the session cookie.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	// Step 1: exchange authorization code → OAuth access token.
	// This makes a POST to GitHub's token endpoint using our ClientSecret.
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Step 2: call the GitHub /user API with the token.
	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	// Step 3: unmarshal the JSON response into our GitHubUser struct
	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &ghUser, nil
}
