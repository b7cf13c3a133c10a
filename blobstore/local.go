package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/vecgo/internal/fs"
)

// LocalStore implements BlobStore using the local file system. Open,
// Delete, List and the directory creation in Create go through
// internal/fs, so a fault-injecting FileSystem affects them; the temp
// file that Create writes, syncs and renames is handled with package os
// directly.
type LocalStore struct {
	root string
	fs   fs.FileSystem
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, fs: fs.Default}
}

// NewLocalStoreFS creates a LocalStore backed by a custom fs.FileSystem,
// primarily for fault-injection tests.
func NewLocalStoreFS(root string, filesystem fs.FileSystem) *LocalStore {
	return &LocalStore{root: root, fs: filesystem}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, name)
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	f, err := s.fs.OpenFile(s.path(name), os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &localBlob{f: f, size: info.Size()}, nil
}

// Create opens a blob for writing. The write lands in a temp file in
// the same directory and is published via rename on Close, the same
// atomic-save discipline persistence.SaveToFile uses.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	if err := s.fs.MkdirAll(s.root, 0755); err != nil {
		return nil, err
	}

	final := s.path(name)
	tmp, err := os.CreateTemp(s.root, filepath.Base(final)+".tmp-*")
	if err != nil {
		return nil, err
	}

	return &localWritableBlob{tmp: tmp, final: final}, nil
}

// Put writes a blob atomically in a single call.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Delete removes a blob. It is not an error if the blob is absent.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := s.fs.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the names of every blob whose name has the given prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, ".tmp-") {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

type localBlob struct {
	f    fs.File
	size int64
}

func (b *localBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off >= b.size {
		return 0, io.EOF
	}
	n, err := b.f.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *localBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if off >= b.size {
		return nil, io.EOF
	}

	end := off + length
	if end > b.size {
		end = b.size
	}

	buf := make([]byte, end-off)
	if _, err := b.f.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(string(buf))), nil
}

func (b *localBlob) Close() error {
	return b.f.Close()
}

func (b *localBlob) Size() int64 {
	return b.size
}

type localWritableBlob struct {
	tmp   *os.File
	final string
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	return w.tmp.Write(p)
}

func (w *localWritableBlob) Sync() error {
	return w.tmp.Sync()
}

func (w *localWritableBlob) Close() error {
	tmpName := w.tmp.Name()

	if err := w.tmp.Sync(); err != nil {
		_ = w.tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := w.tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, w.final)
}
