package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/changefeed"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

// newTestDB opens a private in-memory database with its own hub.
func newTestDB(t *testing.T) (*DB, *changefeed.Hub) {
	t.Helper()
	hub := changefeed.NewHub()
	db, err := New(":memory:", hub)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, hub
}

func createTestUser(t *testing.T, db *DB, githubID int64, login string) *model.User {
	t.Helper()
	user := &model.User{
		GitHubID:  githubID,
		Login:     login,
		Email:     login + "@example.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/123",
	}
	require.NoError(t, db.Upsert(context.Background(), user))
	return user
}

func TestUser_FirstSignInCreatesRow(t *testing.T) {
	db, _ := newTestDB(t)

	alice := createTestUser(t, db, 1001, "alice")
	assert.NotEmpty(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	found, err := db.GetUserByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), found.GitHubID)
	assert.Equal(t, "alice", found.Login)
	assert.Equal(t, "alice@example.com", found.Email)
}

func TestUser_LaterSignInKeepsID(t *testing.T) {
	db, _ := newTestDB(t)
	first := createTestUser(t, db, 1001, "alice")

	renamed := &model.User{GitHubID: 1001, Login: "alice-renamed", AvatarURL: "https://example.com/new.png"}
	require.NoError(t, db.Upsert(context.Background(), renamed))

	assert.Equal(t, first.ID, renamed.ID, "members.user_id must stay valid")
	assert.Equal(t, "alice-renamed", renamed.Login)

	found, err := db.GetUserByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice-renamed", found.Login)
	assert.Equal(t, "https://example.com/new.png", found.AvatarURL)
}

func TestUser_DistinctAccountsGetDistinctIDs(t *testing.T) {
	db, _ := newTestDB(t)

	alice := createTestUser(t, db, 1001, "alice")
	bob := createTestUser(t, db, 1002, "bob")
	assert.NotEqual(t, alice.ID, bob.ID)
}

func TestUser_UpsertNotifiesUsersTable(t *testing.T) {
	db, _ := newTestDB(t)
	changes := 0
	db.SubscribeTable(repository.TableUsers, func() { changes++ })

	createTestUser(t, db, 1001, "alice")
	createTestUser(t, db, 1001, "alice")
	assert.Equal(t, 2, changes)
}

func TestUser_UnknownID(t *testing.T) {
	db, _ := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
