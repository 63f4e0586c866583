package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const partialSuffix = ".part"

// DiskStore keeps document bytes as files below a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed and returns a store rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: abs}, nil
}

// Dir returns the absolute storage directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) Put(ctx context.Context, name string, data []byte) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := filepath.Join(s.dir, fmt.Sprintf("%s-%s.pdf", uuid.NewString(), sanitizeName(name)))
	partial := target + partialSuffix
	if err := os.WriteFile(partial, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return "", err
	}
	return FileHandle(target), nil
}

func (s *DiskStore) Open(ctx context.Context, h Handle) ([]byte, error) {
	path, err := s.Path(ctx, h)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *DiskStore) Path(ctx context.Context, h Handle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := filePath(h)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, h)
		}
		return "", err
	}
	if info.IsDir() || info.Size() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, h)
	}
	return path, nil
}

// Release deletes the file behind h. Handles outside the store directory are left alone.
func (s *DiskStore) Release(ctx context.Context, h Handle) error {
	if !s.Owns(h) {
		return nil
	}
	path, err := filePath(h)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *DiskStore) Owns(h Handle) bool {
	path, err := filePath(h)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
