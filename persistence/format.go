package persistence

import "errors"

// Magic identifies zvdb binary files (ASCII "ZVDB").
const Magic = "ZVDB"

// Version is the current file format version.
const Version uint32 = 1

const (
	// Validation ceilings applied on load to catch corrupted or
	// adversarial blobs before they drive an allocation. Not load-bearing
	// for correctness on well-formed files; callers MAY relax them.
	MaxNodeCount       = 1_000_000
	MaxVectorLen       = 1_000_000
	MaxConnectionCount = 1_000_000
	MaxMetadataLen     = 1_000_000
	MaxLevel           = 100
)

// IndexType identifies the algorithm backing an index_blob.
type IndexType uint8

// IndexTypeHNSW is the only concrete index variant the façade produces.
const IndexTypeHNSW IndexType = 0

func (t IndexType) String() string {
	if t == IndexTypeHNSW {
		return "HNSW"
	}
	return "Unknown"
}

var (
	ErrInvalidMagicNumber = errors.New("persistence: invalid magic number")
	ErrUnsupportedVersion = errors.New("persistence: unsupported version")
	ErrInvalidConfig      = errors.New("persistence: invalid configuration in header")
	ErrUnsupportedIndex   = errors.New("persistence: unsupported index type")
	ErrCorrupted          = errors.New("persistence: corrupted index blob")
	ErrEmptyFile          = errors.New("persistence: file is empty")
	ErrTruncated          = errors.New("persistence: file is truncated")
)

// Header is the fixed prefix of a .zvdb file: magic, version, dimension,
// distance metric and index type. It is immediately followed by the
// index-specific header (empty for HNSW) and then vector_count.
type Header struct {
	Dimension      uint32
	DistanceMetric uint8 // distance.Metric, stored as a raw byte
	IndexType      IndexType
}
