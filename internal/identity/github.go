package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/auth"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/service"
)

// OAuthProvider is the GitHub side of sign-in.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
	UserFromToken(ctx context.Context, accessToken string) (*auth.GitHubUser, error)
}

// CallbackAwaiter waits for the browser to come back to the local listener.
type CallbackAwaiter interface {
	Await(ctx context.Context, state string, ready func(baseURL string) error, complete auth.CallbackFunc) error
}

// Accounts issues and checks session tokens. *service.AuthService implements it.
type Accounts interface {
	LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ValidateToken(token string) (*auth.Claims, error)
}

// GitHub signs users in with GitHub and keeps the resulting session on disk.
type GitHub struct {
	provider OAuthProvider
	callback CallbackAwaiter
	accounts Accounts
	sessions *SessionStore
	open     func(url string) error
	logger   *slog.Logger

	signingIn atomic.Bool
}

// NewGitHub creates the adapter. open launches the authorization URL; nil
// selects OpenBrowser.
func NewGitHub(provider OAuthProvider, callback CallbackAwaiter, accounts Accounts, sessions *SessionStore, open func(string) error, logger *slog.Logger) *GitHub {
	if open == nil {
		open = OpenBrowser
	}
	return &GitHub{
		provider: provider,
		callback: callback,
		accounts: accounts,
		sessions: sessions,
		open:     open,
		logger:   logger,
	}
}

// GetSession returns the persisted session, or nil when there is none. A
// stored token that no longer validates is discarded.
func (g *GitHub) GetSession(ctx context.Context) (*model.Session, error) {
	session, _, err := g.current()
	return session, err
}

func (g *GitHub) current() (*model.Session, *auth.Claims, error) {
	token, err := g.sessions.Load()
	if err != nil {
		return nil, nil, apperror.Remote("could not read the saved session", err)
	}
	if token == "" {
		return nil, nil, nil
	}

	claims, err := g.accounts.ValidateToken(token)
	if err != nil {
		g.logger.Info("discarding saved session", slog.String("reason", err.Error()))
		if clearErr := g.sessions.Clear(); clearErr != nil {
			g.logger.Warn("clearing saved session", slog.String("error", clearErr.Error()))
		}
		return nil, nil, nil
	}

	session := &model.Session{
		UserID: claims.Subject,
		Token:  token,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, claims, nil
}

// GetUserProfile returns the signed-in user's profile. The stored user row is
// preferred; the token's own claims cover a row that has gone missing.
func (g *GitHub) GetUserProfile(ctx context.Context) (model.Profile, error) {
	session, claims, err := g.current()
	if err != nil {
		return model.Profile{}, err
	}
	if session == nil {
		return model.Profile{}, apperror.AuthRequired("please sign in first")
	}

	user, err := g.accounts.GetUserByID(ctx, session.UserID)
	switch {
	case err == nil:
		return model.NewProfile(user.ID, user.Login, user.AvatarURL), nil
	case errors.Is(err, apperror.ErrNotFound):
		return model.NewProfile(session.UserID, claims.Login, claims.AvatarURL), nil
	default:
		return model.Profile{}, apperror.Remote("could not load your profile", err)
	}
}

// SignIn runs the interactive browser sign-in and persists the new session.
// It blocks until the browser returns, the callback listener times out or ctx
// ends. Only one sign-in may be pending at a time.
func (g *GitHub) SignIn(ctx context.Context) (*model.Session, error) {
	if !g.signingIn.CompareAndSwap(false, true) {
		return nil, apperror.ConflictMessage("a sign-in is already in progress")
	}
	defer g.signingIn.Store(false)

	state := xid.New().String()
	var result *service.AuthResult

	ready := func(baseURL string) error {
		authURL := g.provider.AuthURL(state)
		g.logger.Info("waiting for GitHub sign-in",
			slog.String("callback", baseURL),
			slog.String("url", authURL),
		)
		if err := g.open(authURL); err != nil {
			// The URL is in the log line above; the user can open it by hand.
			g.logger.Warn("could not open browser", slog.String("error", err.Error()))
		}
		return nil
	}

	complete := func(ctx context.Context, params auth.CallbackParams) error {
		var (
			ghUser *auth.GitHubUser
			err    error
		)
		if params.Code != "" {
			ghUser, err = g.provider.Exchange(ctx, params.Code)
		} else {
			ghUser, err = g.provider.UserFromToken(ctx, params.AccessToken)
		}
		if err != nil {
			return apperror.Remote("GitHub sign-in failed", err)
		}

		result, err = g.accounts.LoginOrRegisterGitHub(ctx, ghUser)
		return err
	}

	if err := g.callback.Await(ctx, state, ready, complete); err != nil {
		return nil, err
	}

	if err := g.sessions.Save(result.Token); err != nil {
		return nil, apperror.Remote("could not save the session", err)
	}

	return &model.Session{
		UserID:    result.User.ID,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}, nil
}

// SignOut forgets the persisted session.
func (g *GitHub) SignOut(ctx context.Context) error {
	if err := g.sessions.Clear(); err != nil {
		return apperror.Remote("could not sign out", err)
	}
	return nil
}
