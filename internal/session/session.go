// ABOUTME: Session token storage for authenticated API calls
// ABOUTME: Persists the bearer token issued at login in the user's config directory

package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileName is the session file name inside the config directory
const FileName = "session"

// Store holds the session token. Read, Write and Clear are its only operations.
type Store interface {
	Read() (string, bool)
	Write(token string) error
	Clear() error
}

// FileStore persists the session token in a single file readable only by the owner
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the session file path inside configDir
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, FileName)
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Read returns the stored token. A missing or empty file means no session.
func (s *FileStore) Read() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

// Write replaces the stored token
func (s *FileStore) Write(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an absent session is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// MemoryStore keeps the token in memory only
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore creates a store holding token; pass "" for no session
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Read returns the held token
func (m *MemoryStore) Read() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

// Write replaces the held token
func (m *MemoryStore) Write(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear drops the held token
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
