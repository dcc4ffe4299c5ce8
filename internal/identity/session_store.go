// Package identity is the session adapter between the presence core and GitHub
// sign-in. It owns the persisted session token and normalizes the signed-in
// profile once, so nothing downstream checks for missing fields.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SessionStore persists the session token in a single file readable only by
// the current user.
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path returns the file the token is stored in.
func (s *SessionStore) Path() string {
	return s.path
}

// Load returns the stored token, or "" when no session has been saved.
func (s *SessionStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("identity: reading session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the stored token.
func (s *SessionStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("identity: creating session directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("identity: writing session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("identity: replacing session file: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an absent session is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("identity: removing session file: %w", err)
	}
	return nil
}
