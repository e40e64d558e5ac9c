package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemStore maps store keys to files under a root directory. It
// supports native ranged reads via ReadAt and in-place partial writes via
// WriteAt. Set replaces values atomically via rename.
type FilesystemStore struct {
	root string
}

// tmpFilePrefix marks in-flight Set temp files so List skips them.
const tmpFilePrefix = ".zarrs-tmp-"

// NewFilesystemStore opens a store rooted at an existing directory.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("filesystem store root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("filesystem store root %q is not a directory", root)
	}
	return &FilesystemStore{root: root}, nil
}

func (f *FilesystemStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid store key %q", key)
		}
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

func (f *FilesystemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}
	value, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}
	return value, true, nil
}

func (f *FilesystemStore) GetPartial(_ context.Context, key string, ranges []ByteRange) ([][]byte, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, false, &StoreError{Op: "get_partial", Key: key, Err: err}
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StoreError{Op: "get_partial", Key: key, Err: err}
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, true, &StoreError{Op: "get_partial", Key: key, Err: err}
	}
	size := uint64(info.Size())
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		start, end, err := r.Bounds(size)
		if err != nil {
			return nil, true, &StoreError{Op: "get_partial", Key: key, Err: err}
		}
		buf := make([]byte, end-start)
		if _, err := file.ReadAt(buf, int64(start)); err != nil {
			return nil, true, &StoreError{Op: "get_partial", Key: key, Err: err}
		}
		out[i] = buf
	}
	return out, true, nil
}

func (f *FilesystemStore) Set(_ context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	// Write to a temp file and rename so readers never see a torn value.
	tmp, err := os.CreateTemp(filepath.Dir(path), tmpFilePrefix+"*")
	if err != nil {
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (f *FilesystemStore) SetPartial(_ context.Context, key string, offset uint64, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return &StoreError{Op: "set_partial", Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StoreError{Op: "set_partial", Key: key, Err: err}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &StoreError{Op: "set_partial", Key: key, Err: err}
	}
	defer file.Close()
	if _, err := file.WriteAt(value, int64(offset)); err != nil {
		return &StoreError{Op: "set_partial", Key: key, Err: err}
	}
	return nil
}

func (f *FilesystemStore) Erase(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return &StoreError{Op: "erase", Key: key, Err: err}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &StoreError{Op: "erase", Key: key, Err: err}
	}
	return nil
}

func (f *FilesystemStore) ErasePrefix(ctx context.Context, prefix string) error {
	keys, err := f.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := f.Erase(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (f *FilesystemStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), tmpFilePrefix) {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, &StoreError{Op: "list", Key: prefix, Err: err}
	}
	sort.Strings(keys)
	return keys, nil
}
