package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const filePerm = 0o600

// FileStore keeps the identity in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath - location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}

	return filepath.Join(dir, "tictactoe-online", "player-id"), nil
}

func (that *FileStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(that.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read identity file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func (that *FileStore) Save(_ context.Context, id string) error {
	if err := os.MkdirAll(filepath.Dir(that.path), 0o700); err != nil {
		return fmt.Errorf("failed to create identity dir: %w", err)
	}

	if err := os.WriteFile(that.path, []byte(id+"\n"), filePerm); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}

	return nil
}

type MemoryStore struct {
	mu sync.Mutex
	id string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (that *MemoryStore) Load(_ context.Context) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.id, nil
}

func (that *MemoryStore) Save(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.id = id

	return nil
}
