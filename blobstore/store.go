package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for accessing immutable data blobs: a
// saved .zvdb file, most commonly, kept somewhere other than the local
// filesystem (S3, MinIO) so the storage_path configuration option can
// point at a remote location transparently.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for writing, truncating any existing content.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically in a single call.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. It is not an error if the blob is absent.
	Delete(ctx context.Context, name string) error
	// List returns the names of every blob whose name has the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader over [off, off+length).
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a handle to a blob being written. Close commits the
// write; implementations that buffer in memory (MemoryStore) or stage
// to a temp file (LocalStore) perform the actual publish in Close.
type WritableBlob interface {
	io.Writer
	io.Closer
	Sync() error
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	// This is a zero-copy operation if supported.
	Bytes() ([]byte, error)
}
