// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a GitHub account that has signed in at least once.
//
// We use GitHub OAuth as the identity provider, so the primary external
// identifier is the GitHub user ID (an integer). We still generate our own
// internal string ID (xid); that internal ID is the "user id" stored in
// members.user_id.
type User struct {
	ID        string    `json:"id"        db:"id"`
	GitHubID  int64     `json:"githubId"  db:"github_id"` // GitHub's numeric user ID
	Login     string    `json:"login"     db:"login"`     // GitHub username, e.g. "sakif"
	Email     string    `json:"email"     db:"email"`     // Primary public email (may be empty)
	AvatarURL string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UnknownUsername is shown when the identity provider did not supply a login.
const UnknownUsername = "unknown"

// Session is the opaque handle the identity adapter hands out after sign-in.
// Only UserID is interpreted by the presence core.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Profile is the display identity of the signed-in user.
//
// Fallbacks are applied once, at the identity adapter boundary (NewProfile),
// so nothing downstream re-checks for missing fields.
type Profile struct {
	ID        string
	Username  string
	AvatarURL string
}

// NewProfile builds a Profile, substituting UnknownUsername for an empty login.
func NewProfile(id, username, avatarURL string) Profile {
	if username == "" {
		username = UnknownUsername
	}
	return Profile{
		ID:        id,
		Username:  username,
		AvatarURL: avatarURL,
	}
}
