// Package service holds the business rules of teamsync: sign-in, teams and
// activity reporting. It sits between the presence coordinator and the store:
//
//	presence.Coordinator → service (business rules) → repository (DB)
//	                     ↘ auth.TokenService (JWT)
//
// Services never touch presence state or the UI. They validate input, call the
// store and translate failures into apperror categories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/auth"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

// AuthService turns a GitHub identity into a stored user and a signed
// session token, and reads both back.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// AuthResult is what a completed sign-in hands to the identity adapter.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// LoginOrRegisterGitHub stores the GitHub account, creating the user on the
// first sign-in, and issues a session token for it. The store keys on the
// numeric GitHub ID because logins can be renamed.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, apperror.AuthRequired("GitHub did not return an account")
	}

	user := &model.User{GitHubID: gh.ID, Login: gh.Login, Email: gh.Email, AvatarURL: gh.AvatarURL}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, apperror.Remote("could not save your profile",
			fmt.Errorf("service/auth: storing github user %d: %w", gh.ID, err))
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, user.Login, user.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing session for %s: %w", user.ID, err)
	}

	s.logger.Info("signed in with GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
		slog.Time("expiresAt", expiresAt),
	)
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id must not be empty")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken rejects expired, tampered and malformed tokens.
func (s *AuthService) ValidateToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return claims, nil
}
