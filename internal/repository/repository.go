// Package repository declares the storage contracts of the presence store.
//
// Every lookup is an equality filter on an indexed column (team_id, user_id,
// member_id, invite_code). Implementations return apperror.ErrNotFound for a
// missing single row and an empty slice for an empty list.
package repository

import (
	"context"
	"time"

	"github.com/sakif/teamsync/internal/model"
)

// Table names used by SubscribeTable.
const (
	TableTeams      = "teams"
	TableMembers    = "members"
	TableActivities = "activities"
	TableUsers      = "users"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type TeamRepository interface {
	CreateTeam(ctx context.Context, team *model.Team) error
	GetTeamByID(ctx context.Context, id string) (*model.Team, error)
	GetTeamByInviteCode(ctx context.Context, code string) (*model.Team, error)
}

type MemberRepository interface {
	CreateMember(ctx context.Context, member *model.Member) error
	GetMember(ctx context.Context, teamID, userID string) (*model.Member, error)
	ListMembersByTeam(ctx context.Context, teamID string) ([]model.Member, error)
	ListMembersByUser(ctx context.Context, userID string) ([]model.Member, error)
	DeleteMember(ctx context.Context, teamID, userID string) error
}

// ActivityPatch is a partial update of an Activity row. A nil StatusMessage
// leaves the stored status untouched.
type ActivityPatch struct {
	FilePath      string
	StatusMessage *string
	IsActive      bool
	UpdatedAt     time.Time
}

type ActivityRepository interface {
	GetActivityByMember(ctx context.Context, memberID string) (*model.Activity, error)
	CreateActivity(ctx context.Context, activity *model.Activity) error
	UpdateActivity(ctx context.Context, id string, patch ActivityPatch) error
	ListActivitiesByMembers(ctx context.Context, memberIDs []string) ([]model.Activity, error)
}

// Changefeed delivers "something changed in this table" notifications.
// Notifications carry no payload; subscribers re-read what they need.
// The returned function unsubscribes and is safe to call more than once.
type Changefeed interface {
	SubscribeTable(table string, onChange func()) (unsubscribe func())
}

// Notifier is the write side of a changefeed: stores call Notify after every
// successful mutation of a table.
type Notifier interface {
	Notify(table string)
}

// Store is the full presence store: CRUD on every record type plus the changefeed.
type Store interface {
	UserRepository
	TeamRepository
	MemberRepository
	ActivityRepository
	Changefeed
}
