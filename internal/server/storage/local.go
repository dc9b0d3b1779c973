package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/filex"
)

// LocalStore writes audio under BaseDir, one file per key.
type LocalStore struct {
	BaseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	dir, err := filex.EnsureDir(baseDir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{BaseDir: dir}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path, err := filex.SafeJoin(s.BaseDir, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("short audio: got %d bytes, want %d", len(data), size)
	}

	return filex.WriteFileAtomic(path, data, 0o640)
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := filex.SafeJoin(s.BaseDir, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := filex.SafeJoin(s.BaseDir, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
