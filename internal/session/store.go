// Package session stores the commenter's display name for a viewing session.
// The store is injected into the comment flow so the one-time name prompt can
// be faked in tests and swapped for other backends.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrEmptyName rejects blank names before anything is persisted.
var ErrEmptyName = errors.New("name must not be empty")

// Store caches the display name across visits. Once a name is set it stays
// set for the session; there is no transition back to the unset state.
type Store interface {
	// Name returns the cached name and whether one has been set.
	Name() (string, bool)
	// SetName caches a non-empty name.
	SetName(name string) error
}

// FileStore persists the name as a small JSON file, so repeat visits skip the
// prompt.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type sessionState struct {
	Name string `json:"name"`
}

// Name implements Store.
func (f *FileStore) Name() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil || st.Name == "" {
		return "", false
	}
	return st.Name, true
}

// SetName implements Store.
func (f *FileStore) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(sessionState{Name: name})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	mu   sync.Mutex
	name string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Name implements Store.
func (m *MemoryStore) Name() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, m.name != ""
}

// SetName implements Store.
func (m *MemoryStore) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return nil
}
