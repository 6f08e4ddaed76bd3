/*
Package storage provides the durable client-side store for the auth token.

The token is the only state that survives a restart; it is read on startup to
attempt session restoration and removed on logout or failed restoration. The
store is a single buntdb file under the user's configuration directory.
*/
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/buntdb"
)

// tokenKey is the key under which the auth token is persisted.
const tokenKey = "auth:token"

// TokenStore persists the auth token across client restarts.
type TokenStore struct {
	db *buntdb.DB
}

// OpenTokenStore opens (creating if necessary) the token database at the
// given path. Parent directories are created as needed.
func OpenTokenStore(path string) (*TokenStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create token store directory: %w", err)
		}
	}

	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	return &TokenStore{db: db}, nil
}

// Save persists the token, replacing any previous value.
func (s *TokenStore) Save(token string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(tokenKey, token, nil)
		return err
	})
}

// Load returns the persisted token, or an empty string when none is stored.
func (s *TokenStore) Load() (string, error) {
	var token string

	err := s.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(tokenKey)
		if err != nil {
			return err
		}
		token = value
		return nil
	})

	if err == buntdb.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return token, nil
}

// Clear removes the persisted token. Clearing an absent token is not an error.
func (s *TokenStore) Clear() error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(tokenKey)
		return err
	})

	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

// Close closes the underlying database.
func (s *TokenStore) Close() error {
	return s.db.Close()
}
