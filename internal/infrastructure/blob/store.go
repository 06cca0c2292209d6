// Package blob provides filesystem-backed blob stores for original,
// processed and temporary video files. A store never trusts its keys:
// every operation re-checks that the resolved path stays a direct child of
// the configured root.
package blob

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when a stored file is missing or unreadable.
	ErrNotFound = errors.New("blob not found")

	// ErrEmptyContent is returned when storing a file with no bytes.
	ErrEmptyContent = errors.New("blob content is empty")

	// ErrInvalidKey is returned for keys containing path separators or
	// parent references.
	ErrInvalidKey = errors.New("invalid blob key")

	// ErrAlreadyExists is returned when the destination file exists. Keys
	// are UUID-derived, so a collision indicates a caller bug.
	ErrAlreadyExists = errors.New("blob already exists")
)

// Store is a single-directory blob store.
type Store struct {
	root string
}

// NewStore creates the root directory if absent and returns a store over it.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory of the store.
func (s *Store) Root() string {
	return s.root
}

// Save streams r into a new file named key inside the root and returns the
// key unchanged. The caller supplies an already-generated filename; anything
// that could escape the root is rejected before touching the disk.
func (s *Store) Save(key string, r io.Reader) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	dest, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat destination: %w", err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("close blob file: %w", err)
	}
	if n == 0 {
		_ = os.Remove(dest)
		return "", ErrEmptyContent
	}

	return key, nil
}

// Open returns a reader over the stored file. Missing or unreadable files
// map to ErrNotFound; everything else is a generic storage error.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return f, nil
}

// Size returns the stored file's size in bytes.
func (s *Store) Size(key string) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}

	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return 0, fmt.Errorf("stat blob: %w", err)
	}

	return info.Size(), nil
}

// Delete removes the stored file. Deleting a missing file is not an error.
func (s *Store) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("blob already gone", slog.String("key", key))
			return nil
		}
		return fmt.Errorf("delete blob: %w", err)
	}

	return nil
}

// Promote moves a file from another store (typically temp) into this store
// under the given key. The move is atomic when both roots share a
// filesystem.
func (s *Store) Promote(srcPath, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	dest, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("ensure destination directory: %w", err)
	}

	if err := os.Rename(srcPath, dest); err != nil {
		return fmt.Errorf("move blob into store: %w", err)
	}

	return nil
}

// Path returns the absolute path a key resolves to, after containment checks.
func (s *Store) Path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return s.resolve(key)
}

// validateKey rejects separators and parent references before any path math.
func validateKey(key string) error {
	if key == "" ||
		strings.Contains(key, "/") ||
		strings.Contains(key, `\`) ||
		strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// resolve joins key onto the root and verifies the normalized result is a
// direct child of the root. Defense in depth: validateKey already rejects
// traversal, this catches anything it missed.
func (s *Store) resolve(key string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(s.root, key))
	if err != nil {
		return "", fmt.Errorf("resolve blob path: %w", err)
	}
	if filepath.Dir(abs) != s.root {
		return "", fmt.Errorf("%w: %q escapes storage root", ErrInvalidKey, key)
	}
	return abs, nil
}
