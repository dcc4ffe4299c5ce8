package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// LoadOrCreateSecret returns the signing secret stored at path, generating
// and storing one on first use. The file has the same permissions as the
// session file.
func LoadOrCreateSecret(path string) (secret string, created bool, err error) {
	store := NewSessionStore(path)
	secret, err = store.Load()
	if err != nil {
		return "", false, fmt.Errorf("identity: reading signing secret: %w", err)
	}
	if secret != "" {
		return secret, false, nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", false, fmt.Errorf("identity: generating signing secret: %w", err)
	}
	secret = hex.EncodeToString(b)
	if err := store.Save(secret); err != nil {
		return "", false, fmt.Errorf("identity: storing signing secret: %w", err)
	}
	return secret, true, nil
}
