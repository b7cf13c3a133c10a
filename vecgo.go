// Package vecgo provides an embeddable approximate-nearest-neighbor
// vector index: a concurrent HNSW graph, SIMD-accelerated distance
// kernels, a vector/metadata store, and a single-file persistence
// format, behind one handle.
//
// # Quick start
//
//	db, err := vecgo.Open(vecgo.Config{
//	    Dimension:   128,
//	    Metric:      vecgo.Euclidean,
//	    StoragePath: "./data.zvdb",
//	})
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	id, err := db.Insert(vector, []byte("metadata"))
//	results, err := db.SearchKNN(query, 10)
//	err = db.Save("") // empty path falls back to Config.StoragePath
//
// Only one concrete index kind exists today (HNSW); Open always
// returns one. The facade exists so that a future additional kind
// would not require changing callers.
package vecgo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/vecgo/blobstore"
	"github.com/hupe1980/vecgo/distance"
	"github.com/hupe1980/vecgo/index"
)

// ErrInvalidK is returned by SearchKNN when k is not positive.
var ErrInvalidK = errors.New("vecgo: k must be positive")

// Metric re-exports distance.Metric so callers configuring a Vecgo
// instance don't need to import the distance package directly.
type Metric = distance.Metric

const (
	Euclidean = distance.Euclidean
	Manhattan = distance.Manhattan
	Cosine    = distance.Cosine
)

// Result is a single search hit: an id and its distance from the
// query, in ascending distance order.
type Result = index.Result

// Vecgo is a single embedded index instance, the library's sole public
// entry point.
type Vecgo struct {
	cfg     Config
	idx     *index.Index
	blobs   blobstore.BlobStore
	metrics MetricsCollector
	logger  *Logger
}

// Open validates cfg and returns a fresh, empty index. Dimension and
// Metric are required; the index.* tuning fields default to M=16,
// ef_construction=200, ef_search=50 when left zero.
func Open(cfg Config, optFns ...Option) (*Vecgo, error) {
	cfg = cfg.withDefaults()

	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be > 0", ErrInvalidConfiguration)
	}

	o := applyOptions(optFns)

	idx, err := index.New(index.Config{
		Dimension:      cfg.Dimension,
		Metric:         cfg.Metric,
		M:              cfg.IndexM,
		EfConstruction: cfg.IndexEfConstruction,
		EfSearch:       cfg.IndexEfSearch,
		Seed:           cfg.RngSeed,
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &Vecgo{
		cfg:     cfg,
		idx:     idx,
		blobs:   o.blobs,
		metrics: o.metricsCollector,
		logger:  o.logger,
	}, nil
}

// Dimension returns the configured vector length.
func (vg *Vecgo) Dimension() int { return vg.idx.Dimension() }

// Metric returns the configured distance metric.
func (vg *Vecgo) Metric() Metric { return vg.idx.Metric() }

// Count returns the number of vectors currently stored.
func (vg *Vecgo) Count() int { return vg.idx.Count() }

// Insert adds vector with an optional opaque metadata payload and
// returns its freshly assigned id. Equal vectors may be inserted
// repeatedly; each insert gets its own distinct id.
func (vg *Vecgo) Insert(vector []float32, metadata []byte) (uint64, error) {
	start := time.Now()
	id, err := vg.idx.Add(vector, metadata)
	vg.metrics.RecordInsert(time.Since(start), err)
	vg.logger.LogInsert(context.Background(), id, vg.idx.Dimension(), err)
	return id, translateError(err)
}

// SearchKNN returns up to k nearest neighbors of query, sorted by
// ascending distance. An empty index returns an empty slice; k greater
// than Count() returns Count() results.
func (vg *Vecgo) SearchKNN(query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	start := time.Now()
	results, err := vg.idx.Search(query, k)
	vg.metrics.RecordSearch(k, time.Since(start), err)
	vg.logger.LogSearch(context.Background(), k, len(results), err)
	return results, translateError(err)
}

// Get returns the vector and metadata stored under id.
func (vg *Vecgo) Get(id uint64) (vector []float32, metadata []byte, err error) {
	vector, metadata, err = vg.idx.Get(id)
	return vector, metadata, translateError(err)
}

// Delete removes id. It fails with an error satisfying
// errors.Is(err, ErrNotFound) if id isn't present.
func (vg *Vecgo) Delete(id uint64) error {
	start := time.Now()
	err := vg.idx.Delete(id)
	vg.metrics.RecordDelete(time.Since(start), err)
	vg.logger.LogDelete(context.Background(), id, err)
	return translateError(err)
}

// Update replaces the vector and metadata stored under id, preserving
// its id and its position in the graph.
func (vg *Vecgo) Update(id uint64, vector []float32, metadata []byte) error {
	start := time.Now()
	err := vg.idx.Update(id, vector, metadata)
	vg.metrics.RecordUpdate(time.Since(start), err)
	vg.logger.LogUpdate(context.Background(), id, err)
	return translateError(err)
}

// Close releases resources held by this instance. The in-memory index
// has nothing to release on its own; Close exists so a blob-store
// backed instance (S3, MinIO) has a place to flush/close client
// connections if a future blobstore implementation needs one.
func (vg *Vecgo) Close() error {
	return nil
}
