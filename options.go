package vecgo

import (
	"github.com/hupe1980/vecgo/blobstore"
)

// Config is the configuration record validated by Open. Dimension and
// Metric are required; the index.* fields and Seed tune the HNSW graph
// and fall back to sensible defaults when zero.
type Config struct {
	// Dimension is the length every inserted vector must have.
	Dimension int

	// Metric selects the distance function: Euclidean, Manhattan, or
	// Cosine.
	Metric Metric

	// IndexM is the target node degree (index.M). Defaults to 16.
	IndexM int

	// IndexEfConstruction is the candidate list size used while
	// inserting (index.ef_construction). Defaults to 200.
	IndexEfConstruction int

	// IndexEfSearch is the candidate list size used while querying
	// (index.ef_search). Defaults to 50.
	IndexEfSearch int

	// StoragePath is where Save and Load default to when called
	// without an explicit path. Optional.
	StoragePath string

	// RngSeed makes level assignment deterministic when set. Optional.
	RngSeed *int64
}

const (
	defaultIndexM              = 16
	defaultIndexEfConstruction = 200
	defaultIndexEfSearch       = 50
)

func (cfg Config) withDefaults() Config {
	if cfg.IndexM == 0 {
		cfg.IndexM = defaultIndexM
	}
	if cfg.IndexEfConstruction == 0 {
		cfg.IndexEfConstruction = defaultIndexEfConstruction
	}
	if cfg.IndexEfSearch == 0 {
		cfg.IndexEfSearch = defaultIndexEfSearch
	}
	return cfg
}

type options struct {
	blobs            blobstore.BlobStore
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open/Load behavior beyond the core Config record:
// observability hooks and where storage_path is actually resolved.
type Option func(*options)

// WithBlobStore routes Save/Load for storage_path through store instead
// of the local filesystem, so a config naming an S3 or MinIO key works
// transparently. A nil store (the default) uses the local disk.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobs = store
	}
}

// WithMetricsCollector configures a collector for per-operation timing
// and error-rate metrics. Pass nil to disable.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations. Pass nil to
// disable logging entirely.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
