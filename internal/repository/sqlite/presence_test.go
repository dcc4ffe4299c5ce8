package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

func createTestTeam(t *testing.T, db *DB, name, code string) *model.Team {
	t.Helper()
	team := &model.Team{Name: name, InviteCode: code}
	require.NoError(t, db.CreateTeam(context.Background(), team))
	return team
}

func createTestMember(t *testing.T, db *DB, teamID, userID, username string) *model.Member {
	t.Helper()
	member := &model.Member{TeamID: teamID, UserID: userID, GitHubUsername: username}
	require.NoError(t, db.CreateMember(context.Background(), member))
	return member
}

// =========================================================================
// TEAM TESTS
// =========================================================================

func TestTeam_CreateAndLookup(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	team := createTestTeam(t, db, "Acme", "ABCD-EFGH")
	assert.NotEmpty(t, team.ID)
	assert.False(t, team.CreatedAt.IsZero())

	byID, err := db.GetTeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", byID.Name)

	byCode, err := db.GetTeamByInviteCode(ctx, "ABCD-EFGH")
	require.NoError(t, err)
	assert.Equal(t, team.ID, byCode.ID)
}

func TestTeam_UnknownInviteCode(t *testing.T) {
	db, _ := newTestDB(t)

	_, err := db.GetTeamByInviteCode(context.Background(), "ZZZZ-ZZZZ")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestTeam_DuplicateInviteCode(t *testing.T) {
	db, _ := newTestDB(t)
	createTestTeam(t, db, "First", "ABCD-EFGH")

	err := db.CreateTeam(context.Background(), &model.Team{Name: "Second", InviteCode: "ABCD-EFGH"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)
}

// =========================================================================
// MEMBER TESTS
// =========================================================================

func TestMember_UniquePerTeamAndUser(t *testing.T) {
	db, _ := newTestDB(t)
	team := createTestTeam(t, db, "Acme", "ABCD-EFGH")
	createTestMember(t, db, team.ID, "user-1", "alice")

	err := db.CreateMember(context.Background(), &model.Member{TeamID: team.ID, UserID: "user-1"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	members, err := db.ListMembersByTeam(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestMember_ListByTeamAndUser(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	acme := createTestTeam(t, db, "Acme", "ABCD-EFGH")
	other := createTestTeam(t, db, "Other", "JKLM-NPQR")

	createTestMember(t, db, acme.ID, "user-1", "alice")
	createTestMember(t, db, acme.ID, "user-2", "bob")
	createTestMember(t, db, other.ID, "user-1", "alice")

	byTeam, err := db.ListMembersByTeam(ctx, acme.ID)
	require.NoError(t, err)
	assert.Len(t, byTeam, 2)

	byUser, err := db.ListMembersByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	none, err := db.ListMembersByUser(ctx, "user-404")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMember_DeleteCascadesActivity(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	team := createTestTeam(t, db, "Acme", "ABCD-EFGH")
	member := createTestMember(t, db, team.ID, "user-1", "alice")
	require.NoError(t, db.CreateActivity(ctx, &model.Activity{MemberID: member.ID, FilePath: "a.go", IsActive: true}))

	require.NoError(t, db.DeleteMember(ctx, team.ID, "user-1"))

	_, err := db.GetMember(ctx, team.ID, "user-1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = db.GetActivityByMember(ctx, member.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	// Deleting again reports NotFound.
	err = db.DeleteMember(ctx, team.ID, "user-1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// =========================================================================
// ACTIVITY TESTS
// =========================================================================

func TestActivity_UpdateKeepsStatusWhenPatchOmitsIt(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	team := createTestTeam(t, db, "Acme", "ABCD-EFGH")
	member := createTestMember(t, db, team.ID, "user-1", "alice")

	activity := &model.Activity{MemberID: member.ID, FilePath: "src/a.ts", StatusMessage: "fixing login", IsActive: true}
	require.NoError(t, db.CreateActivity(ctx, activity))

	err := db.UpdateActivity(ctx, activity.ID, repository.ActivityPatch{FilePath: "src/b.ts", IsActive: true})
	require.NoError(t, err)

	got, err := db.GetActivityByMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "src/b.ts", got.FilePath)
	assert.Equal(t, "fixing login", got.StatusMessage)
	assert.True(t, got.IsActive)

	status := "reviewing"
	require.NoError(t, db.UpdateActivity(ctx, activity.ID, repository.ActivityPatch{FilePath: "src/b.ts", StatusMessage: &status, IsActive: true}))

	got, err = db.GetActivityByMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "reviewing", got.StatusMessage)
}

func TestActivity_ListByMembers(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	team := createTestTeam(t, db, "Acme", "ABCD-EFGH")
	alice := createTestMember(t, db, team.ID, "user-1", "alice")
	bob := createTestMember(t, db, team.ID, "user-2", "bob")
	require.NoError(t, db.CreateActivity(ctx, &model.Activity{MemberID: alice.ID, FilePath: "a.go", IsActive: true}))

	activities, err := db.ListActivitiesByMembers(ctx, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, alice.ID, activities[0].MemberID)

	empty, err := db.ListActivitiesByMembers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// =========================================================================
// CHANGEFEED TESTS
// =========================================================================

func TestChangefeed_WritesNotifySubscribers(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	var activityChanges, memberChanges int
	unsubscribe := db.SubscribeTable(repository.TableActivities, func() { activityChanges++ })
	defer unsubscribe()
	db.SubscribeTable(repository.TableMembers, func() { memberChanges++ })

	team := createTestTeam(t, db, "Acme", "ABCD-EFGH")
	member := createTestMember(t, db, team.ID, "user-1", "alice")
	assert.Equal(t, 1, memberChanges)
	assert.Equal(t, 0, activityChanges)

	activity := &model.Activity{MemberID: member.ID, FilePath: "a.go", IsActive: true}
	require.NoError(t, db.CreateActivity(ctx, activity))
	require.NoError(t, db.UpdateActivity(ctx, activity.ID, repository.ActivityPatch{FilePath: "b.go", IsActive: true}))
	assert.Equal(t, 2, activityChanges)

	// Failed writes do not notify.
	_ = db.UpdateActivity(ctx, "missing", repository.ActivityPatch{FilePath: "c.go"})
	assert.Equal(t, 2, activityChanges)
}
