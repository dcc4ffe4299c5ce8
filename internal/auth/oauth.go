package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// githubUserURL is the GitHub REST endpoint for the authenticated user.
const githubUserURL = "https://api.github.com/user"

// GitHubUser is the portion of the GitHub /user API response we care about.
type GitHubUser struct {
	ID        int64  `json:"id"`         // GitHub's numeric user ID, stable across renames
	Login     string `json:"login"`      // GitHub username, e.g. "sakif"
	Email     string `json:"email"`      // Primary email (empty if hidden in GitHub settings)
	AvatarURL string `json:"avatar_url"` // Profile picture URL
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW (desktop variant):
//  1. teamsync opens GitHub's authorization endpoint in the browser, with the
//     ClientID, the requested scopes and a redirect to the local callback port.
//  2. The user approves (or denies) the request on GitHub.
//  3. GitHub redirects the browser to http://localhost:<port>/callback?code=...
//  4. The CallbackServer hands the code to Exchange, which trades it for an
//     access token (server-to-server) and reads the user's profile with it.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// callbackURL must match the "Authorization callback URL" of the OAuth App,
// e.g. "http://localhost:54321/callback".
//
// Scopes we request:
//   - "read:user": access to the user's public profile (ID, login, avatar)
//   - "user:email": access to the user's email addresses
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return NewGitHubProviderWithEndpoint(clientID, clientSecret, callbackURL, github.Endpoint, githubUserURL)
}

// NewGitHubProviderWithEndpoint is NewGitHubProvider against custom endpoints.
// Tests point it at an httptest server.
func NewGitHubProviderWithEndpoint(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, userURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		userURL: userURL,
	}
}

// AuthURL returns the URL to open in the browser for authorization.
//
// STATE PARAMETER:
// The state is a random string generated per sign-in attempt. The callback
// listener only accepts a redirect carrying the same state, so a stray or forged
// request to the local port cannot complete someone else's sign-in.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the code flow: trades the authorization code for an
// access token and returns the GitHub profile it belongs to.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	return p.fetchUser(ctx, oauthToken)
}

// UserFromToken returns the GitHub profile for an access token that reached us
// directly (token-in-fragment redirect) rather than through a code exchange.
func (p *GitHubProvider) UserFromToken(ctx context.Context, accessToken string) (*GitHubUser, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("auth: empty access token")
	}
	return p.fetchUser(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

// fetchUser calls the GitHub /user API with the token.
// oauth2.Config.Client returns an *http.Client that adds the
// "Authorization: Bearer <token>" header to every request.
func (p *GitHubProvider) fetchUser(ctx context.Context, token *oauth2.Token) (*GitHubUser, error) {
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &ghUser, nil
}
