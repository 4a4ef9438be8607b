// Package artifacts stores exported transcript files.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists one named file and returns where it ended up.
type Store interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// LocalStore writes files under <root>/uploads.
type LocalStore struct {
	dir string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{dir: filepath.Join(root, "uploads")}
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload folder: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return path, nil
}
