package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores each key as <dir>/<alias>.key with 0600 permissions.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a backend rooted at dir.
func NewFileBackend(dir string) (*FileBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("keystore directory is required")
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(alias string) string {
	return filepath.Join(b.dir, alias+".key")
}

// Load reads the key file for alias.
func (b *FileBackend) Load(alias string) ([]byte, error) {
	data, err := os.ReadFile(b.path(alias))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return data, nil
}

// Store writes the key atomically through a temp file and rename.
func (b *FileBackend) Store(alias string, key []byte) error {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return fmt.Errorf("create keystore directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, alias+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp key: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp key: %w", err)
	}
	if _, err := tmp.Write(key); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp key: %w", err)
	}
	if err := os.Rename(tmpPath, b.path(alias)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace key file: %w", err)
	}
	return nil
}
