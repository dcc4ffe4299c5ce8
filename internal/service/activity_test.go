package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/model"
)

func newTestActivityService(store *fakeStore) *ActivityService {
	svc := NewActivityService(store, store, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func strPtr(s string) *string { return &s }

func TestActivityUpsert_InsertsWhenMissing(t *testing.T) {
	store := newFakeStore()
	svc := newTestActivityService(store)

	require.NoError(t, svc.Upsert(context.Background(), "member-1", "src/x.ts", nil))

	got, err := store.GetActivityByMember(context.Background(), "member-1")
	require.NoError(t, err)
	assert.Equal(t, "src/x.ts", got.FilePath)
	assert.Equal(t, "", got.StatusMessage)
	assert.True(t, got.IsActive)
	assert.Equal(t, 1, store.createActivityCalls)
	assert.Zero(t, store.updateActivityCalls)
}

func TestActivityUpsert_UpdatesExistingRow(t *testing.T) {
	store := newFakeStore()
	svc := newTestActivityService(store)
	require.NoError(t, svc.Upsert(context.Background(), "member-1", "a.go", strPtr("fixing login")))

	// A file-focus update leaves the status alone.
	require.NoError(t, svc.Upsert(context.Background(), "member-1", "b.go", nil))

	got, err := store.GetActivityByMember(context.Background(), "member-1")
	require.NoError(t, err)
	assert.Equal(t, "b.go", got.FilePath)
	assert.Equal(t, "fixing login", got.StatusMessage)
	assert.Equal(t, 1, store.createActivityCalls)
	assert.Equal(t, 1, store.updateActivityCalls)
	assert.Nil(t, store.lastPatch.StatusMessage)
	assert.True(t, store.lastPatch.IsActive)
	assert.Equal(t, 2026, store.lastPatch.UpdatedAt.Year())

	require.NoError(t, svc.Upsert(context.Background(), "member-1", "b.go", strPtr("reviewing")))
	got, err = store.GetActivityByMember(context.Background(), "member-1")
	require.NoError(t, err)
	assert.Equal(t, "reviewing", got.StatusMessage)
}

func TestActivityUpsert_Validation(t *testing.T) {
	tests := []struct {
		name     string
		memberID string
		status   *string
	}{
		{"no member", "", nil},
		{"status too long", "member-1", strPtr(strings.Repeat("é", MaxStatusLength+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestActivityService(store)

			err := svc.Upsert(context.Background(), tt.memberID, "a.go", tt.status)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
			assert.Zero(t, store.createActivityCalls+store.updateActivityCalls)
		})
	}
}

func TestActivityUpsert_StatusAtLimitIsAccepted(t *testing.T) {
	svc := newTestActivityService(newFakeStore())

	err := svc.Upsert(context.Background(), "member-1", "a.go", strPtr(strings.Repeat("é", MaxStatusLength)))
	assert.NoError(t, err)
}

func TestActivityUpsert_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.createActivityErr = errors.New("network down")
	svc := newTestActivityService(store)

	err := svc.Upsert(context.Background(), "member-1", "a.go", nil)
	assert.True(t, errors.Is(err, apperror.ErrRemote), "got %v", err)
}

func TestActivityRoster_LeftJoin(t *testing.T) {
	store := newFakeStore()
	teams := newTestTeamService(store)
	svc := newTestActivityService(store)

	team, aliceMember, err := teams.Create(context.Background(), alice, "Acme")
	require.NoError(t, err)
	_, bobMember, err := teams.Join(context.Background(), bob, team.InviteCode)
	require.NoError(t, err)
	require.NoError(t, svc.Upsert(context.Background(), aliceMember.ID, "src/app.ts", nil))

	roster, err := svc.Roster(context.Background(), team.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)

	byID := map[string]model.MemberWithActivity{}
	for _, m := range roster {
		byID[m.ID] = m
	}
	assert.Equal(t, "src/app.ts", byID[aliceMember.ID].FilePath())
	assert.Nil(t, byID[bobMember.ID].Activity, "bob has no activity yet")
	assert.Equal(t, "", byID[bobMember.ID].FilePath())
}

func TestActivityRoster_EmptyTeam(t *testing.T) {
	svc := newTestActivityService(newFakeStore())

	roster, err := svc.Roster(context.Background(), "team-404")
	require.NoError(t, err)
	assert.Empty(t, roster)
}
