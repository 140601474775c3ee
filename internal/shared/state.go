package shared

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// MemoryPath keeps the [StateStore] in memory only.
const MemoryPath = ":memory:"

// State is the persisted key-value document: the three token entries and the volume preference.
type State struct {
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	ExpiresAt    time.Time `toml:"expires_at"`
	Volume       *float64  `toml:"volume,omitempty"`
}

// StateStore persists [State] as a small TOML file, rewriting it atomically on every change.
type StateStore struct {
	path  string
	mu    sync.Mutex
	state State
}

// NewStateStore opens the state file at path, creating an empty state when it does not exist yet.
//
// The path can be [MemoryPath] for a store that is never written to disk.
func NewStateStore(path string) (*StateStore, error) {
	s := &StateStore{path: path}
	if path == MemoryPath {
		return s, nil
	}

	s.path = ExpandPath(path)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if _, err := toml.Decode(string(data), &s.state); err != nil {
		return nil, fmt.Errorf("%w: failed to parse state file %s: %v", ErrInvalidConfig, s.path, err)
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *StateStore) Path() string {
	return s.path
}

// Snapshot returns a copy of the current state.
func (s *StateStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the state and persists the result.
func (s *StateStore) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	fn(&next)
	if err := s.write(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Volume returns the stored volume preference, if one was saved.
func (s *StateStore) Volume() (float64, bool) {
	st := s.Snapshot()
	if st.Volume == nil {
		return 0, false
	}
	return *st.Volume, true
}

// SetVolume persists the volume preference.
func (s *StateStore) SetVolume(v float64) error {
	return s.Update(func(st *State) { st.Volume = &v })
}

func (s *StateStore) write(st State) error {
	if s.path == MemoryPath {
		return nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(st); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
