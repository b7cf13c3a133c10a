package vecgo

import (
	"context"
	"fmt"

	"github.com/hupe1980/vecgo/index"
	"github.com/hupe1980/vecgo/persistence"
)

// resolvePath returns path if non-empty, else Config.StoragePath. It
// fails if both are empty: there is nowhere to save or load from.
func (vg *Vecgo) resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if vg.cfg.StoragePath != "" {
		return vg.cfg.StoragePath, nil
	}
	return "", fmt.Errorf("%w: no path given and no storage_path configured", ErrInvalidConfiguration)
}

// Save writes the full index (header, vector store, HNSW graph) to
// path, or to Config.StoragePath if path is empty. When a blob store
// was configured via WithBlobStore, the write goes through it instead
// of the local filesystem, so storage_path can name an S3 or MinIO key.
func (vg *Vecgo) Save(path string) error {
	resolved, err := vg.resolvePath(path)
	if err != nil {
		return err
	}

	if vg.blobs == nil {
		err = vg.idx.Save(resolved)
		vg.logger.LogSave(context.Background(), resolved, err)
		return translateError(err)
	}

	ctx := context.Background()
	w, err := vg.blobs.Create(ctx, resolved)
	if err != nil {
		vg.logger.LogSave(ctx, resolved, err)
		return fmt.Errorf("%w: %w", ErrIoError, err)
	}

	if err := vg.idx.Serialize(w); err != nil {
		_ = w.Close()
		vg.logger.LogSave(ctx, resolved, err)
		return translateError(err)
	}

	err = w.Close()
	vg.logger.LogSave(ctx, resolved, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIoError, err)
	}
	return nil
}

// Load opens a fresh instance from a file previously written by Save.
// cfg supplies the HNSW tuning parameters the file doesn't persist
// (M, ef_construction, ef_search, rng_seed); Dimension and Metric are
// overridden from the file's header regardless of what cfg sets.
func Load(path string, cfg Config, optFns ...Option) (*Vecgo, error) {
	cfg = cfg.withDefaults()
	o := applyOptions(optFns)

	idxCfg := index.Config{
		Dimension:      cfg.Dimension,
		Metric:         cfg.Metric,
		M:              cfg.IndexM,
		EfConstruction: cfg.IndexEfConstruction,
		EfSearch:       cfg.IndexEfSearch,
		Seed:           cfg.RngSeed,
	}

	vg := &Vecgo{cfg: cfg, blobs: o.blobs, metrics: o.metricsCollector, logger: o.logger}

	resolved, err := vg.resolvePath(path)
	if err != nil {
		return nil, err
	}

	if o.blobs == nil {
		idx, err := index.Load(resolved, idxCfg)
		vg.logger.LogLoad(context.Background(), resolved, countOrZero(idx), err)
		if err != nil {
			return nil, translateError(err)
		}
		vg.idx = idx
		vg.cfg.Dimension = idx.Dimension()
		vg.cfg.Metric = idx.Metric()
		return vg, nil
	}

	ctx := context.Background()
	blob, err := o.blobs.Open(ctx, resolved)
	if err != nil {
		vg.logger.LogLoad(ctx, resolved, 0, err)
		return nil, fmt.Errorf("%w: %w", ErrIoError, err)
	}
	defer func() { _ = blob.Close() }()

	if blob.Size() == 0 {
		vg.logger.LogLoad(ctx, resolved, 0, persistence.ErrEmptyFile)
		return nil, fmt.Errorf("%w: %w", ErrEmptyFile, persistence.ErrEmptyFile)
	}

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		vg.logger.LogLoad(ctx, resolved, 0, err)
		return nil, fmt.Errorf("%w: %w", ErrIoError, err)
	}
	defer func() { _ = r.Close() }()

	idx, err := index.Deserialize(r, idxCfg)
	vg.logger.LogLoad(ctx, resolved, countOrZero(idx), err)
	if err != nil {
		return nil, translateError(err)
	}

	vg.idx = idx
	vg.cfg.Dimension = idx.Dimension()
	vg.cfg.Metric = idx.Metric()
	return vg, nil
}

func countOrZero(idx *index.Index) int {
	if idx == nil {
		return 0
	}
	return idx.Count()
}
