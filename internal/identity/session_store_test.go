package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	store := NewSessionStore(path)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "missing file means no session")

	require.NoError(t, store.Save("tok-1"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Save("tok-2"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	assert.NoError(t, store.Clear(), "clearing twice is fine")
}
