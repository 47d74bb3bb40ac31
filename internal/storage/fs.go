package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// fsStorage keeps documents as plain files in a directory of an afero filesystem.
// Metadata and content types are not persisted by this backend.
type fsStorage struct {
	fs   afero.Fs
	root string
}

// NewFS returns a Storage rooted at root/prefix on fsys, creating the directory if needed.
func NewFS(fsys afero.Fs, root, prefix string) (Storage, error) {
	dir := path.Join(root, strings.Trim(prefix, "/"))
	if dir == "" || dir == "." {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &fsStorage{fs: fsys, root: dir}, nil
}

func (s *fsStorage) path(key string) (string, error) {
	if key == "" || key != path.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: invalid key %q", ErrObjectNotFound, key)
	}
	return path.Join(s.root, key), nil
}

func (s *fsStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := afero.WriteReader(s.fs, p, r); err != nil {
		return ObjectInfo{}, err
	}
	info, err := s.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.ContentType = opt.ContentType
	info.Metadata = opt.Metadata
	return info, nil
}

func (s *fsStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	p, _ := s.path(key)
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, ObjectInfo{}, mapFSErr(key, err)
	}
	return f, info, nil
}

func (s *fsStorage) Stat(_ context.Context, key string) (ObjectInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	fi, err := s.fs.Stat(p)
	if err != nil {
		return ObjectInfo{}, mapFSErr(key, err)
	}
	if fi.IsDir() {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return toInfo(fi), nil
}

// List returns regular files in the root, sorted by name.
func (s *fsStorage) List(_ context.Context) ([]ObjectInfo, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ObjectInfo{}, nil
		}
		return nil, err
	}
	out := make([]ObjectInfo, 0, len(entries))
	for _, fi := range entries {
		if fi.IsDir() {
			continue
		}
		out = append(out, toInfo(fi))
	}
	return out, nil
}

func (s *fsStorage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func toInfo(fi fs.FileInfo) ObjectInfo {
	return ObjectInfo{
		Key:          fi.Name(),
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
	}
}

func mapFSErr(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return err
}
