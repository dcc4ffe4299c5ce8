package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory implementation of the team, member and activity
// repositories. Error fields simulate store failures for one call kind.
type fakeStore struct {
	mu         sync.Mutex
	teams      map[string]*model.Team
	members    []*model.Member
	activities map[string]*model.Activity // keyed by member ID
	seq        int

	createTeamErr     error
	createMemberErr   error
	createActivityErr error
	updateActivityErr error
	deleteMemberErr   error

	// conflictsLeft makes the next CreateTeam calls report a taken invite code.
	conflictsLeft int

	createTeamCalls     int
	createActivityCalls int
	updateActivityCalls int
	lastPatch           repository.ActivityPatch
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams:      make(map[string]*model.Team),
		activities: make(map[string]*model.Activity),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) CreateTeam(ctx context.Context, team *model.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTeamCalls++
	if f.createTeamErr != nil {
		return f.createTeamErr
	}
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return apperror.Conflict("team invite code", team.InviteCode)
	}
	for _, t := range f.teams {
		if t.InviteCode == team.InviteCode {
			return apperror.Conflict("team invite code", team.InviteCode)
		}
	}
	team.ID = f.nextID("team")
	team.CreatedAt = time.Now()
	copied := *team
	f.teams[team.ID] = &copied
	return nil
}

func (f *fakeStore) GetTeamByID(ctx context.Context, id string) (*model.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[id]
	if !ok {
		return nil, apperror.NotFound("team", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeStore) GetTeamByInviteCode(ctx context.Context, code string) (*model.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.teams {
		if t.InviteCode == code {
			copied := *t
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("team with invite code", code)
}

func (f *fakeStore) CreateMember(ctx context.Context, member *model.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createMemberErr != nil {
		return f.createMemberErr
	}
	for _, m := range f.members {
		if m.TeamID == member.TeamID && m.UserID == member.UserID {
			return apperror.Conflict("member", member.UserID)
		}
	}
	member.ID = f.nextID("member")
	member.JoinedAt = time.Now()
	copied := *member
	f.members = append(f.members, &copied)
	return nil
}

func (f *fakeStore) GetMember(ctx context.Context, teamID, userID string) (*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.TeamID == teamID && m.UserID == userID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("member", userID)
}

func (f *fakeStore) ListMembersByTeam(ctx context.Context, teamID string) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Member{}
	for _, m := range f.members {
		if m.TeamID == teamID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMembersByUser(ctx context.Context, userID string) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Member{}
	for _, m := range f.members {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteMember(ctx context.Context, teamID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteMemberErr != nil {
		return f.deleteMemberErr
	}
	for i, m := range f.members {
		if m.TeamID == teamID && m.UserID == userID {
			f.members = append(f.members[:i], f.members[i+1:]...)
			delete(f.activities, m.ID)
			return nil
		}
	}
	return apperror.NotFound("member", userID)
}

func (f *fakeStore) GetActivityByMember(ctx context.Context, memberID string) (*model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[memberID]
	if !ok {
		return nil, apperror.NotFound("activity for member", memberID)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) CreateActivity(ctx context.Context, activity *model.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createActivityCalls++
	if f.createActivityErr != nil {
		return f.createActivityErr
	}
	activity.ID = f.nextID("activity")
	copied := *activity
	f.activities[activity.MemberID] = &copied
	return nil
}

func (f *fakeStore) UpdateActivity(ctx context.Context, id string, patch repository.ActivityPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateActivityCalls++
	f.lastPatch = patch
	if f.updateActivityErr != nil {
		return f.updateActivityErr
	}
	for _, a := range f.activities {
		if a.ID == id {
			a.FilePath = patch.FilePath
			a.IsActive = patch.IsActive
			a.UpdatedAt = patch.UpdatedAt
			if patch.StatusMessage != nil {
				a.StatusMessage = *patch.StatusMessage
			}
			return nil
		}
	}
	return apperror.NotFound("activity", id)
}

func (f *fakeStore) ListActivitiesByMembers(ctx context.Context, memberIDs []string) ([]model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Activity{}
	for _, id := range memberIDs {
		if a, ok := f.activities[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) memberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.members)
}
