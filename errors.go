package vecgo

import (
	"errors"
	"fmt"
	"os"

	"github.com/hupe1980/vecgo/distance"
	"github.com/hupe1980/vecgo/hnsw"
	"github.com/hupe1980/vecgo/index"
	"github.com/hupe1980/vecgo/persistence"
	"github.com/hupe1980/vecgo/vectorstore"
)

var (
	// ErrNotFound is returned when an id is not currently present in
	// the index.
	ErrNotFound = errors.New("vecgo: not found")

	// ErrDuplicateID is returned by Insert when the vector store already
	// holds the id the graph just assigned.
	ErrDuplicateID = errors.New("vecgo: duplicate id")

	// ErrInvalidConfiguration is returned by Open when the supplied
	// Config fails validation (dimension <= 0, M < 2, ...).
	ErrInvalidConfiguration = errors.New("vecgo: invalid configuration")

	// ErrInvalidFormat covers every structural problem with a .zvdb
	// file that isn't one of the more specific kinds below: a bad
	// magic number, an unsupported version, or a corrupted blob.
	ErrInvalidFormat = errors.New("vecgo: invalid file format")

	// ErrEmptyFile is returned by Load when storage_path points at a
	// zero-byte file.
	ErrEmptyFile = errors.New("vecgo: file is empty")

	// ErrTruncated is returned by Load when a file ends before a
	// length-prefixed section it declared is fully read.
	ErrTruncated = errors.New("vecgo: file is truncated")

	// ErrIoError wraps an underlying storage error (disk, network
	// object store) encountered while saving or loading.
	ErrIoError = errors.New("vecgo: io error")
)

// ErrDimensionMismatch indicates a vector's length disagrees with the
// index's configured dimension, or with another operand in a distance
// computation.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vecgo: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError maps the internal sentinel errors of hnsw, vectorstore,
// persistence, and distance onto the public error kinds of §7. Errors
// that don't match any known internal kind pass through unchanged,
// except an *os.PathError from the local filesystem, which is wrapped
// as ErrIoError. Blob-store errors are wrapped as ErrIoError by Save
// and Load themselves.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, hnsw.ErrNodeNotFound) || errors.Is(err, vectorstore.ErrIDNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, vectorstore.ErrDuplicateID) {
		return fmt.Errorf("%w: %w", ErrDuplicateID, err)
	}
	if errors.Is(err, hnsw.ErrInvalidConfig) {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	var dm *distance.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	if errors.Is(err, persistence.ErrEmptyFile) {
		return fmt.Errorf("%w: %w", ErrEmptyFile, err)
	}
	if errors.Is(err, persistence.ErrTruncated) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	if errors.Is(err, persistence.ErrInvalidMagicNumber) ||
		errors.Is(err, persistence.ErrUnsupportedVersion) ||
		errors.Is(err, persistence.ErrUnsupportedIndex) ||
		errors.Is(err, persistence.ErrInvalidConfig) ||
		errors.Is(err, persistence.ErrCorrupted) ||
		errors.Is(err, index.ErrCorrupted) {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	var pe *os.PathError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: %w", ErrIoError, err)
	}

	return err
}
