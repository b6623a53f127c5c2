// Package artifact stores rendered graph exports (SVG, HTML, CSV) so past
// layouts can be retrieved after the backend has moved on.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key has no stored artifact.
var ErrNotFound = errors.New("artifact not found")

// Store is the artifact storage contract. LocalStore implements it on the
// filesystem; an object-store implementation can slot in behind it.
type Store interface {
	Put(ctx context.Context, key string, reader io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the canonical artifact key for a repository export:
// <repo>/<timestamp>.<format>.
func Key(repoID uuid.UUID, takenAt time.Time, format string) string {
	return fmt.Sprintf("%s/%s.%s", repoID, takenAt.UTC().Format("20060102T150405Z"), format)
}

// LocalStore keeps artifacts under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Put writes an artifact atomically via temp file and rename.
func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader) error {
	fullPath := filepath.Join(s.root, key)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to finalize artifact %s: %w", key, err)
	}
	return nil
}

// Get opens a stored artifact for reading.
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open artifact %s: %w", key, err)
	}
	return file, nil
}

// List returns all keys under a prefix, typically a repository id.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	root := filepath.Join(s.root, prefix)

	var keys []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(s.root, path)
			if err != nil {
				return err
			}
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list artifacts under %s: %w", prefix, err)
	}
	return keys, nil
}

// Delete removes one artifact.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.root, key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("failed to delete artifact %s: %w", key, err)
	}
	return nil
}
