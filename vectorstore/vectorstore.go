// Package vectorstore owns a copy of the vector and metadata bytes of
// every entry, keyed by id. The index package keeps it beside the HNSW
// graph, whose nodes hold their own copy of each vector and metadata
// payload; Get on the index reads from this store. Every add/update takes
// an independent copy; get returns a
// borrowed view into that copy, valid until the next update/delete of the
// same id.
package vectorstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/vecgo/distance"
	"github.com/hupe1980/vecgo/persistence"
)

var (
	// ErrDuplicateID is returned by Add when the id is already present.
	ErrDuplicateID = errors.New("vectorstore: duplicate id")
	// ErrIDNotFound is returned by Get/Update/Delete when the id is absent.
	ErrIDNotFound = errors.New("vectorstore: id not found")
)

type entry struct {
	vector   []float32
	metadata []byte
}

// Store is the canonical, map-based storage for vectors and their
// associated metadata, keyed by a caller-assigned uint64 id.
//
// Thread safety: all operations are safe for concurrent use; a single
// sync.RWMutex guards the map and every stored entry, since entries are
// replaced wholesale rather than mutated in place.
type Store struct {
	mu        sync.RWMutex
	dimension int
	entries   map[uint64]entry
}

// New creates an empty store for vectors of the given dimension.
func New(dimension int) *Store {
	return &Store{
		dimension: dimension,
		entries:   make(map[uint64]entry),
	}
}

// Dimension returns the fixed vector length this store accepts.
func (s *Store) Dimension() int {
	return s.dimension
}

// Count returns the number of entries currently stored.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Add stores vector and metadata under id, taking independent copies of
// both. It fails with ErrDuplicateID if id is already present, or with a
// *distance.ErrDimensionMismatch if vector's length doesn't match the
// store's configured dimension.
func (s *Store) Add(id uint64, vector []float32, metadata []byte) error {
	if len(vector) != s.dimension {
		return &distance.ErrDimensionMismatch{Expected: s.dimension, Actual: len(vector)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return ErrDuplicateID
	}

	s.entries[id] = entry{
		vector:   append([]float32(nil), vector...),
		metadata: append([]byte(nil), metadata...),
	}

	return nil
}

// Get returns a borrowed view of the vector and metadata stored under id.
// The returned slices alias store-owned memory and must not be mutated by
// the caller; they remain valid until id is next updated or deleted.
func (s *Store) Get(id uint64) (vector []float32, metadata []byte, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, nil, ErrIDNotFound
	}

	return e.vector, e.metadata, nil
}

// Update replaces the vector and metadata stored under id as a unit,
// releasing the old copies and taking new ones. It fails with
// ErrIDNotFound if id is absent, or a *distance.ErrDimensionMismatch if
// vector's length doesn't match the store's dimension.
func (s *Store) Update(id uint64, vector []float32, metadata []byte) error {
	if len(vector) != s.dimension {
		return &distance.ErrDimensionMismatch{Expected: s.dimension, Actual: len(vector)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrIDNotFound
	}

	s.entries[id] = entry{
		vector:   append([]float32(nil), vector...),
		metadata: append([]byte(nil), metadata...),
	}

	return nil
}

// Delete removes the entry stored under id, releasing its memory. It
// fails with ErrIDNotFound if id is absent.
func (s *Store) Delete(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrIDNotFound
	}

	delete(s.entries, id)

	return nil
}

// Ids returns every id currently stored, in ascending order.
func (s *Store) Ids() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}

	sortUint64s(ids)

	return ids
}

func sortUint64s(ids []uint64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// SerializeVectors writes every stored id and vector, in ascending id
// order, using the persistence package's binary primitives.
func (s *Store) SerializeVectors(bw *persistence.BinaryIndexWriter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sortUint64s(ids)

	if err := bw.WriteUint64(uint64(len(ids))); err != nil {
		return err
	}

	for _, id := range ids {
		e := s.entries[id]

		if err := bw.WriteUint64(id); err != nil {
			return err
		}
		if err := bw.WriteUint32(uint32(len(e.vector))); err != nil {
			return err
		}
		if err := bw.WriteFloat32Slice(e.vector); err != nil {
			return err
		}
	}

	return nil
}

// SerializeMetadata writes every stored id and metadata blob, in
// ascending id order.
func (s *Store) SerializeMetadata(bw *persistence.BinaryIndexWriter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sortUint64s(ids)

	if err := bw.WriteUint64(uint64(len(ids))); err != nil {
		return err
	}

	for _, id := range ids {
		e := s.entries[id]

		if err := bw.WriteUint64(id); err != nil {
			return err
		}
		if err := bw.WriteUint32(uint32(len(e.metadata))); err != nil {
			return err
		}

		// Metadata payloads are typically text/JSON and compress well,
		// unlike the float32 vector section above; each payload is
		// block-compressed independently so a single entry can be
		// decompressed without touching its neighbors.
		if compressed, ok := persistence.CompressLZ4Block(e.metadata); ok {
			if err := bw.WriteUint8(1); err != nil {
				return err
			}
			if err := bw.WriteBytes(compressed); err != nil {
				return err
			}
			continue
		}

		if err := bw.WriteUint8(0); err != nil {
			return err
		}
		if err := bw.WriteBytes(e.metadata); err != nil {
			return err
		}
	}

	return nil
}

// DeserializeVectors repopulates the store's vectors from a stream
// written by SerializeVectors. Ids not already present are created with
// nil metadata, to be filled in by a subsequent DeserializeMetadata
// call. It fails with persistence.ErrCorrupted-wrapped errors on
// malformed input.
func (s *Store) DeserializeVectors(br *persistence.BinaryIndexReader) error {
	count, err := br.ReadUint64()
	if err != nil {
		return err
	}
	if count > persistence.MaxNodeCount {
		return fmt.Errorf("%w: vector count %d exceeds limit", persistence.ErrCorrupted, count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := uint64(0); i < count; i++ {
		id, err := br.ReadUint64()
		if err != nil {
			return err
		}

		vectorLen, err := br.ReadUint32()
		if err != nil {
			return err
		}
		if vectorLen > persistence.MaxVectorLen || int(vectorLen) != s.dimension {
			return fmt.Errorf("%w: vector_len %d does not match dimension %d", persistence.ErrCorrupted, vectorLen, s.dimension)
		}

		vector, err := br.ReadFloat32Slice(int(vectorLen))
		if err != nil {
			return err
		}

		e := s.entries[id]
		e.vector = vector
		s.entries[id] = e
	}

	return nil
}

// DeserializeMetadata repopulates the store's metadata from a stream
// written by SerializeMetadata. Ids not already present (from a prior
// DeserializeVectors call) are created with a nil vector.
func (s *Store) DeserializeMetadata(br *persistence.BinaryIndexReader) error {
	count, err := br.ReadUint64()
	if err != nil {
		return err
	}
	if count > persistence.MaxNodeCount {
		return fmt.Errorf("%w: metadata count %d exceeds limit", persistence.ErrCorrupted, count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := uint64(0); i < count; i++ {
		id, err := br.ReadUint64()
		if err != nil {
			return err
		}

		origLen, err := br.ReadUint32()
		if err != nil {
			return err
		}
		if origLen > persistence.MaxMetadataLen {
			return fmt.Errorf("%w: metadata_len %d exceeds limit", persistence.ErrCorrupted, origLen)
		}

		compressedFlag, err := br.ReadUint8()
		if err != nil {
			return err
		}

		payload, err := br.ReadBytes(persistence.MaxMetadataLen)
		if err != nil {
			return err
		}

		metadata := payload
		if compressedFlag == 1 {
			metadata, err = persistence.DecompressLZ4Block(payload, int(origLen))
			if err != nil {
				return err
			}
		}

		e := s.entries[id]
		e.metadata = metadata
		s.entries[id] = e
	}

	return nil
}
