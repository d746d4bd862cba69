package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sujalbistaa/confesso/internal/apperr"
)

// FileStore keeps the identity slots in a small JSON file, the closest thing
// a CLI or test client has to browser local storage. The file holds a flat
// string map and is rewritten whole on every change.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore places the identity file at path, creating parent directories
// as needed on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStore puts the identity file under the user config dir.
func DefaultFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config dir: %w", err)
	}
	return NewFileStore(filepath.Join(dir, "confesso", "identity.json")), nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := slots[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots, err := s.read()
	if err != nil {
		return err
	}
	slots[key] = value
	return s.write(slots)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots, err := s.read()
	if err != nil {
		return err
	}
	delete(slots, key)
	return s.write(slots)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	slots := map[string]string{}
	if err := json.Unmarshal(data, &slots); err != nil {
		// A corrupt file is treated as empty; the identity is re-minted.
		return map[string]string{}, nil
	}
	return slots, nil
}

func (s *FileStore) write(slots map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu    sync.Mutex
	slots map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{slots: map[string]string{}}
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.slots[key]
	return v, ok, nil
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}
