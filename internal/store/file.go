package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const fileExt = ".json"

// FileStore keeps one file per key in a directory. The file's modification
// time is the entry's write time.
type FileStore struct {
	dir string
}

// NewFile returns a FileStore rooted at dir. The directory is created on
// first write.
func NewFile(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", eris.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

func (s *FileStore) Get(_ context.Context, key string) (*Entry, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "file store: stat")
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "file store: read")
	}
	return &Entry{Value: b, WrittenAt: info.ModTime().UTC()}, nil
}

// Put writes through a temp file and rename so readers never see a
// partial value.
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrap(err, "file store: create dir")
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return eris.Wrap(err, "file store: create temp")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(value); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "file store: write")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "file store: close")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return eris.Wrap(err, "file store: chmod")
	}
	return eris.Wrap(os.Rename(tmp.Name(), p), "file store: rename")
}

func (s *FileStore) Prune(ctx context.Context, before time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "file store: read dir")
	}

	n := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return n, eris.Wrap(ctx.Err(), "file store: prune cancelled")
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(before) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("file store: remove stale entry", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

func (s *FileStore) Close() error { return nil }
