// Package auth provides the GitHub OAuth exchange, the local sign-in callback
// listener and the signed session token teamsync persists between runs.
//
// SESSION FLOW OVERVIEW:
//  1. `login` starts a CallbackServer on the fixed local port and opens GitHub's
//     authorization page in the browser
//  2. GitHub redirects back to http://localhost:<port>/callback with a code
//     (or, for token-in-fragment flows, the page re-posts the token to
//     /callback/token)
//  3. The code is exchanged for the GitHub profile, the user is upserted
//  4. A session JWT is issued and written to the session file
//  5. On the next start the JWT is read back and validated; a valid token
//     restores the session without another browser round-trip
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"userID","login":"octocat","avatar_url":"...","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "teamsync"

	// DefaultSessionTTL is how long a persisted session stays valid.
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// TokenService handles session JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and session
// lifetime. A non-positive ttl selects DefaultSessionTTL.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is the session token payload. Subject is the internal user ID; the
// profile claims let a session be displayed even when the user row is gone.
type Claims struct {
	jwt.RegisteredClaims
	Login     string `json:"login,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Generate creates and signs a session token for the given user, valid for the
// service's TTL. It returns the token and its expiry.
func (s *TokenService) Generate(userID, login, avatarURL string) (string, time.Time, error) {
	return s.GenerateWithDuration(userID, login, avatarURL, s.ttl)
}

// GenerateWithDuration creates a token with a custom lifetime.
// Used in tests (negative durations produce already-expired tokens).
func (s *TokenService) GenerateWithDuration(userID, login, avatarURL string, d time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(d)

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
		Login:     login,
		AvatarURL: avatarURL,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate parses and verifies a session token.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer is "teamsync"
//   - Algorithm is HS256 (jwt.WithValidMethods rejects "none" and friends)
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
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

	return c, nil
}
