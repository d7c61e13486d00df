package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
)

// FileStore persists the session as auth.json inside a directory.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store that keeps the session in dir/auth.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(strings.TrimSpace(dir), minecraft.SessionFileName)}
}

// Path returns the session file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the session file with owner-only permissions.
func (s *FileStore) Save(_ context.Context, session *minecraft.AuthSession) (string, error) {
	if session == nil {
		return "", fmt.Errorf("auth filestore: session is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := session.SaveTokenToFile(s.path); err != nil {
		return "", err
	}
	return s.path, nil
}

// Load reads the session file. A missing file yields minecraft.ErrNoSession.
func (s *FileStore) Load(_ context.Context) (*minecraft.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return minecraft.LoadTokenFromFile(s.path)
}

// Delete removes the session file.
func (s *FileStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("auth filestore: delete session failed: %w", err)
	}
	return nil
}
