// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data: composition, not inheritance.
//
// The `db:"..."` tags name the column each field is stored in; the `json:"..."`
// tags shape the panel's JSON payloads.
package model

import "time"

// Team is a named group of users sharing one invite code.
//
// InviteCode is generated once at creation ("XXXX-XXXX", upper case, no
// visually ambiguous characters) and never changes afterwards.
type Team struct {
	ID         string    `json:"id"         db:"id"`
	Name       string    `json:"name"       db:"name"`
	InviteCode string    `json:"inviteCode" db:"invite_code"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}

// Member is one (team, user) membership row with a cached display profile.
//
// The (TeamID, UserID) pair is unique: joining the same team twice returns the
// existing row instead of inserting a second one.
type Member struct {
	ID             string    `json:"id"             db:"id"`
	TeamID         string    `json:"teamId"         db:"team_id"`
	UserID         string    `json:"userId"         db:"user_id"` // identity-provider subject
	GitHubUsername string    `json:"githubUsername" db:"github_username"`
	AvatarURL      string    `json:"avatarUrl"      db:"avatar_url"`
	JoinedAt       time.Time `json:"joinedAt"       db:"joined_at"`
}

// Activity is a member's current file focus plus free-text status.
// There is at most one Activity row per member.
type Activity struct {
	ID            string    `json:"id"            db:"id"`
	MemberID      string    `json:"memberId"      db:"member_id"`
	FilePath      string    `json:"filePath"      db:"file_path"` // workspace-relative
	StatusMessage string    `json:"statusMessage" db:"status_message"`
	IsActive      bool      `json:"isActive"      db:"is_active"`
	UpdatedAt     time.Time `json:"updatedAt"     db:"updated_at"`
}

// MemberWithActivity is the roster view: a member left-joined with its activity.
// It is rebuilt on every roster fetch and never persisted.
type MemberWithActivity struct {
	Member
	Activity *Activity `json:"activity,omitempty"`
}

// FilePath returns the member's reported file, or "" when there is no activity.
func (m MemberWithActivity) FilePath() string {
	if m.Activity == nil {
		return ""
	}
	return m.Activity.FilePath
}

// StatusMessage returns the member's status, or "" when there is no activity.
func (m MemberWithActivity) StatusMessage() string {
	if m.Activity == nil {
		return ""
	}
	return m.Activity.StatusMessage
}
