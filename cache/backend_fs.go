package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultDir is the default root of the local directory backend.
const DefaultDir = ".cache"

// DirBackend stores documents as files in one directory.
type DirBackend struct {
	dir string
}

// NewDirBackend creates the directory if needed and returns a backend over it.
// An empty dir selects DefaultDir.
func NewDirBackend(dir string) (*DirBackend, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", dir, err)
	}
	return &DirBackend{dir: dir}, nil
}

// Dir returns the backend root.
func (b *DirBackend) Dir() string {
	return b.dir
}

func (b *DirBackend) path(name string) (string, error) {
	if name != filepath.Base(name) || !isDocumentName(name) {
		return "", fmt.Errorf("%w: document name %q", ErrInvalidKey, name)
	}
	return filepath.Join(b.dir, name), nil
}

func (b *DirBackend) Read(_ context.Context, name string) ([]byte, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write publishes data through a temporary file in the same directory and a
// rename, so readers never see a partial document.
func (b *DirBackend) Write(_ context.Context, name string, data []byte) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

func (b *DirBackend) Delete(_ context.Context, name string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (b *DirBackend) Names(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && isDocumentName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (b *DirBackend) Location() string {
	if abs, err := filepath.Abs(b.dir); err == nil {
		return abs
	}
	return b.dir
}

var _ Backend = (*DirBackend)(nil)
