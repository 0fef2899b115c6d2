// Package files is the local file access shared by the REST fs routes and the
// native host endpoint.
package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside the configured root.
var ErrOutsideRoot = errors.New("path outside allowed root")

// Store reads and writes UTF-8 text files. With an empty root any absolute or
// relative path is accepted; otherwise relative paths are joined to root and
// every path must stay inside it.
type Store struct {
	root string
}

// NewStore creates a store confined to root ("" = unconfined).
func NewStore(root string) (*Store, error) {
	if root == "" {
		return &Store{}, nil
	}
	abs, err := filepath.Abs(expandPath(root))
	if err != nil {
		return nil, fmt.Errorf("files: resolve root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the confinement root, or "".
func (s *Store) Root() string { return s.root }

// Resolve maps a caller path to the on-disk path.
func (s *Store) Resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	path = expandPath(path)
	if s.root == "" {
		return filepath.Clean(path), nil
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return path, nil
}

// Read returns the content of path.
func (s *Store) Read(_ context.Context, path string) (string, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces the content of path, creating parent directories.
func (s *Store) Write(_ context.Context, path, content string) error {
	full, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0644)
}

// Exists reports whether path exists. Paths outside the root never exist.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.Resolve(path)
	if err != nil {
		if errors.Is(err, ErrOutsideRoot) {
			return false, nil
		}
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
