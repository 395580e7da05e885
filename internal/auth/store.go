package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// StateDirEnv overrides the state directory (used by tests).
	StateDirEnv = "TEACHDASH_STATE_DIR"
	// DefaultStateBase is the state directory relative to the home dir.
	DefaultStateBase = ".teachdash"
	sessionFile      = "session.json"
)

// StateDir returns $TEACHDASH_STATE_DIR or ~/.teachdash.
func StateDir() (string, error) {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultStateBase), nil
}

// Store persists the session as JSON in the state directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at StateDir().
func NewStore() (*Store, error) {
	dir, err := StateDir()
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// NewStoreAt creates a store rooted at dir.
func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

// Path is the session file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, sessionFile)
}

// Load returns the saved session, or nil when none is saved.
func (s *Store) Load() (*Session, error) {
	b, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", s.Path(), err)
	}
	return &sess, nil
}

// Save writes sess, replacing any previous session.
func (s *Store) Save(sess Session) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.Path())
}

// Logout removes the saved session. Missing files are not an error.
func (s *Store) Logout() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
