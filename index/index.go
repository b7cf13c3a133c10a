// Package index provides the capability abstraction the rest of the
// system talks to: add, search, delete, update, serialize, deserialize.
// HNSW is the sole concrete variant. A variant tag, the dimension and the
// distance metric are written into the file header and override the
// caller's Config on load; M, ef_construction, ef_search and the seed are
// not persisted and always come from the Config passed to Load or
// Deserialize.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/vecgo/distance"
	"github.com/hupe1980/vecgo/hnsw"
	"github.com/hupe1980/vecgo/persistence"
	"github.com/hupe1980/vecgo/vectorstore"
)

// ErrCorrupted is returned by Deserialize/Load when the cross-component
// invariants of a loaded file don't hold (keysets disagree, an id the
// graph references is missing from the vector store, and so on).
var ErrCorrupted = persistence.ErrCorrupted

// Config configures a new Index. Dimension and Metric are required;
// M/EfConstruction/EfSearch/Seed are forwarded to the HNSW graph.
type Config struct {
	Dimension      int
	Metric         distance.Metric
	M              int
	EfConstruction int
	EfSearch       int
	Seed           *int64
}

func (cfg Config) hnswConfig() hnsw.Config {
	return hnsw.Config{
		Dimension:      cfg.Dimension,
		Metric:         cfg.Metric,
		M:              cfg.M,
		EfConstruction: cfg.EfConstruction,
		EfSearch:       cfg.EfSearch,
		Seed:           cfg.Seed,
	}
}

// Result is a single search hit: an id and its distance from the query.
// Fetch the payload separately via Get, matching the data flow where a
// query returns identifiers with distances and payload lookups happen
// only for results the caller actually needs.
type Result = hnsw.Result

// Index is the single concrete index handle: an HNSW graph plus the
// vector store that independently owns a retrievable copy of every
// vector and metadata payload.
type Index struct {
	cfg   Config
	graph *hnsw.HNSW
	store *vectorstore.Store
}

// New opens a fresh, empty index for cfg.
func New(cfg Config) (*Index, error) {
	graph, err := hnsw.New(cfg.hnswConfig())
	if err != nil {
		return nil, err
	}

	return &Index{
		cfg:   cfg,
		graph: graph,
		store: vectorstore.New(cfg.Dimension),
	}, nil
}

// Dimension returns the configured vector length.
func (idx *Index) Dimension() int { return idx.cfg.Dimension }

// Metric returns the configured distance metric.
func (idx *Index) Metric() distance.Metric { return idx.cfg.Metric }

// Count returns the number of entries currently stored.
func (idx *Index) Count() int { return idx.store.Count() }

// Add inserts vector with an optional metadata payload, assigning and
// returning a fresh id. If the vector store add fails after the graph
// insert succeeded (only possible on an id collision, which a
// monotonic id counter should never produce), the graph insert is
// rolled back so the two components can't drift out of sync.
func (idx *Index) Add(vector []float32, metadata []byte) (uint64, error) {
	id, err := idx.graph.Insert(vector, metadata)
	if err != nil {
		return 0, err
	}

	if err := idx.store.Add(id, vector, metadata); err != nil {
		_ = idx.graph.Delete(id)
		return 0, err
	}

	return id, nil
}

// Search returns up to k nearest neighbors of query in ascending
// distance order.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	return idx.graph.SearchKNN(query, k)
}

// Get returns a borrowed view of the vector and metadata stored under
// id.
func (idx *Index) Get(id uint64) (vector []float32, metadata []byte, err error) {
	return idx.store.Get(id)
}

// Delete removes id from both the graph and the vector store.
func (idx *Index) Delete(id uint64) error {
	if err := idx.graph.Delete(id); err != nil {
		return err
	}
	return idx.store.Delete(id)
}

// Update replaces id's vector and metadata in both the graph and the
// vector store, preserving its id.
func (idx *Index) Update(id uint64, vector []float32, metadata []byte) error {
	if err := idx.graph.Update(id, vector, metadata); err != nil {
		return err
	}
	return idx.store.Update(id, vector, metadata)
}

// Serialize writes the full .zvdb file contents: header, vector store,
// the graph's index_blob, and a trailing CRC32 checksum of everything
// written, so Deserialize can detect storage-layer corruption before
// it ever reaches the graph/vector-store decoders.
func (idx *Index) Serialize(w io.Writer) error {
	cw := persistence.NewChecksumWriter(w)
	bw := persistence.NewBinaryIndexWriter(cw)

	header := persistence.Header{
		Dimension:      uint32(idx.cfg.Dimension),
		DistanceMetric: uint8(idx.cfg.Metric),
		IndexType:      persistence.IndexTypeHNSW,
	}
	if err := bw.WriteHeader(header); err != nil {
		return err
	}

	if err := idx.store.SerializeVectors(bw); err != nil {
		return err
	}
	if err := idx.store.SerializeMetadata(bw); err != nil {
		return err
	}

	var blob bytes.Buffer
	if err := idx.graph.Serialize(&blob); err != nil {
		return err
	}

	if err := bw.WriteBytes(persistence.CompressZSTD(blob.Bytes())); err != nil {
		return err
	}

	// Trailer is written straight to w, bypassing cw: it checksums
	// everything that came before it, not itself.
	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], cw.Sum())
	_, err := w.Write(trailer[:])
	return err
}

// Deserialize reads a file written by Serialize. The header's dimension
// and distance metric override the corresponding fields of cfg; the
// remaining HNSW tuning parameters (M, ef_construction, ef_search,
// seed) come from cfg since they aren't persisted (see §6.1: "parameters
// are implicit in graph").
func Deserialize(r io.Reader, cfg Config) (*Index, error) {
	cr := persistence.NewChecksumReader(r)
	br := persistence.NewBinaryIndexReader(cr)

	header, err := br.ReadHeader()
	if err != nil {
		return nil, err
	}

	cfg.Dimension = int(header.Dimension)
	cfg.Metric = distance.Metric(header.DistanceMetric)

	store := vectorstore.New(cfg.Dimension)
	if err := store.DeserializeVectors(br); err != nil {
		return nil, err
	}
	if err := store.DeserializeMetadata(br); err != nil {
		return nil, err
	}

	compressedBlob, err := br.ReadBytes(1 << 30)
	if err != nil {
		return nil, err
	}

	blobBytes, err := persistence.DecompressZSTD(compressedBlob, len(compressedBlob)*3)
	if err != nil {
		return nil, err
	}

	graph, err := hnsw.Deserialize(bytes.NewReader(blobBytes), cfg.hnswConfig())
	if err != nil {
		return nil, err
	}

	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, fmt.Errorf("%w: missing checksum trailer: %v", ErrCorrupted, err)
	}
	if err := cr.Verify(binary.LittleEndian.Uint32(trailer[:])); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	idx := &Index{cfg: cfg, graph: graph, store: store}
	if err := idx.validateCrossInvariants(); err != nil {
		return nil, err
	}

	return idx, nil
}

// validateCrossInvariants checks §3 invariant 5: the graph's keyset and
// the vector store's keyset must agree.
func (idx *Index) validateCrossInvariants() error {
	graphIds := idx.graph.Ids()
	storeIds := idx.store.Ids()

	if len(graphIds) != len(storeIds) {
		return fmt.Errorf("%w: graph has %d nodes, vector store has %d entries", ErrCorrupted, len(graphIds), len(storeIds))
	}
	for i := range graphIds {
		if graphIds[i] != storeIds[i] {
			return fmt.Errorf("%w: graph and vector store keysets disagree", ErrCorrupted)
		}
	}

	return nil
}

// Save atomically writes the index to path via a temp file plus rename.
func (idx *Index) Save(path string) error {
	return persistence.SaveToFile(path, idx.Serialize)
}

// Load opens the index previously saved at path. It fails with
// persistence.ErrEmptyFile if the file is empty.
func Load(path string, cfg Config) (*Index, error) {
	var idx *Index
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var derr error
		idx, derr = Deserialize(r, cfg)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}
