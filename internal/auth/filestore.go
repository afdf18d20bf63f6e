package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists session state as one file per key inside a state
// directory, the durable equivalent of the browser's local storage.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the state directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

// Get reads the value stored under key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set writes the value under key. Files are owner-only: the token grants
// account access.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(key), []byte(value), 0o600); err != nil {
		return fmt.Errorf("write session key %s: %w", key, err)
	}
	return nil
}

// Delete removes the key if present.
func (s *FileStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	os.Remove(s.path(key))
}

// Clear removes every persisted key.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		os.Remove(filepath.Join(s.dir, entry.Name()))
	}
}
