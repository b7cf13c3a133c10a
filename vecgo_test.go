package vecgo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecgo/testutil"
)

func testCfg(dim int) Config {
	return Config{Dimension: dim, Metric: Euclidean}
}

func TestOpen_RejectsZeroDimension(t *testing.T) {
	_, err := Open(Config{Dimension: 0, Metric: Euclidean})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestInsertSearchGetDeleteUpdate(t *testing.T) {
	vg, err := Open(testCfg(3))
	require.NoError(t, err)

	id, err := vg.Insert([]float32{1, 2, 3}, []byte("a"))
	require.NoError(t, err)

	v, m, err := vg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Equal(t, "a", string(m))

	require.NoError(t, vg.Update(id, []float32{4, 5, 6}, []byte("b")))
	_, m, err = vg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "b", string(m))

	require.NoError(t, vg.Delete(id))
	_, _, err = vg.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchKNN_RejectsNonPositiveK(t *testing.T) {
	vg, err := Open(testCfg(3))
	require.NoError(t, err)
	_, err = vg.SearchKNN([]float32{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

// Scenario 1 from the seed suite: basic 3D Euclidean ordering.
func TestScenario_Basic3DEuclidean(t *testing.T) {
	vg, err := Open(testCfg(3))
	require.NoError(t, err)

	_, err = vg.Insert([]float32{1, 2, 3}, nil)
	require.NoError(t, err)
	idB, err := vg.Insert([]float32{4, 5, 6}, nil)
	require.NoError(t, err)
	_, err = vg.Insert([]float32{7, 8, 9}, nil)
	require.NoError(t, err)

	results, err := vg.SearchKNN([]float32{3, 4, 5}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	assert.Equal(t, idB, results[0].ID)
}

// Scenario 2: querying a fresh, empty index returns no results.
func TestScenario_EmptyIndexQuery(t *testing.T) {
	vg, err := Open(testCfg(3))
	require.NoError(t, err)

	results, err := vg.SearchKNN([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// Scenario 3: a single inserted vector is its own nearest neighbor.
func TestScenario_SingleVector(t *testing.T) {
	vg, err := Open(testCfg(3))
	require.NoError(t, err)

	id, err := vg.Insert([]float32{1, 2, 3}, nil)
	require.NoError(t, err)

	results, err := vg.SearchKNN([]float32{1, 2, 3}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
}

// Scenario 4: duplicate vectors get distinct ids and both surface.
func TestScenario_Duplicates(t *testing.T) {
	vg, err := Open(testCfg(3))
	require.NoError(t, err)

	a, err := vg.Insert([]float32{1, 2, 3}, nil)
	require.NoError(t, err)
	b, err := vg.Insert([]float32{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	results, err := vg.SearchKNN([]float32{1, 2, 3}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	ids := []uint64{results[0].ID, results[1].ID}
	assert.Contains(t, ids, a)
	assert.Contains(t, ids, b)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.InDelta(t, 0, results[1].Distance, 1e-6)
}

// Scenario 5: persistence round-trip returns identical query results.
func TestScenario_PersistenceRoundTrip(t *testing.T) {
	seed := int64(42)
	cfg := Config{Dimension: 32, Metric: Euclidean, IndexM: 16, IndexEfConstruction: 200, RngSeed: &seed}

	vg, err := Open(cfg)
	require.NoError(t, err)

	rng := testutil.NewRNG(1)
	for _, vec := range rng.GaussianVectors(500, 32) {
		_, err := vg.Insert(vec, nil)
		require.NoError(t, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.zvdb")
	require.NoError(t, vg.Save(path))

	loaded, err := Load(path, cfg)
	require.NoError(t, err)

	queryRng := testutil.NewRNG(2)
	for _, q := range queryRng.GaussianVectors(20, 32) {
		want, err := vg.SearchKNN(q, 5)
		require.NoError(t, err)
		got, err := loaded.SearchKNN(q, 5)
		require.NoError(t, err)

		require.Len(t, got, len(want))
		for j := range want {
			assert.Equal(t, want[j].ID, got[j].ID)
		}
	}
}

// Scenario 6: deleting the entry point still leaves a searchable index.
func TestScenario_DeleteFromEntry(t *testing.T) {
	seed := int64(7)
	cfg := Config{Dimension: 8, Metric: Euclidean, RngSeed: &seed}
	vg, err := Open(cfg)
	require.NoError(t, err)

	rng := testutil.NewRNG(3)
	ids := make([]uint64, 0, 100)
	for _, vec := range rng.GaussianVectors(100, 8) {
		id, err := vg.Insert(vec, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	deleted := ids[0]
	require.NoError(t, vg.Delete(deleted))

	for _, q := range rng.GaussianVectors(10, 8) {
		results, err := vg.SearchKNN(q, 10)
		require.NoError(t, err)
		require.Len(t, results, 10)
		for _, r := range results {
			assert.NotEqual(t, deleted, r.ID)
		}
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.zvdb")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := Load(path, testCfg(3))
	assert.Error(t, err)
}

func TestLoad_NoPathConfigured(t *testing.T) {
	_, err := Load("", testCfg(3))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

// Regression guard for the approximate-recall property: recall@10
// against brute force should stay high for a moderately sized random
// index. Not a hard contract, just enough to catch a broken graph.
func TestRecallAt10_Regression(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall regression in short mode")
	}

	seed := int64(99)
	cfg := Config{Dimension: 64, Metric: Euclidean, IndexM: 16, IndexEfConstruction: 200, IndexEfSearch: 50, RngSeed: &seed}
	vg, err := Open(cfg)
	require.NoError(t, err)

	rng := testutil.NewRNG(4)
	vectors := rng.GaussianVectors(2000, 64)
	ids := make([]uint64, len(vectors))
	for i, v := range vectors {
		id, err := vg.Insert(v, nil)
		require.NoError(t, err)
		ids[i] = id
	}

	queryRng := testutil.NewRNG(5)
	const queries = 50
	goodQueries := 0
	for _, q := range queryRng.GaussianVectors(queries, 64) {
		truth := testutil.BruteForceSearch(vectors, q, 10)
		groundTruth := make([]testutil.SearchResult, len(truth))
		for j, r := range truth {
			groundTruth[j] = testutil.SearchResult{ID: ids[r.ID], Distance: r.Distance}
		}

		got, err := vg.SearchKNN(q, 10)
		require.NoError(t, err)
		approx := make([]testutil.SearchResult, len(got))
		for j, r := range got {
			approx[j] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
		}

		if testutil.ComputeRecall(groundTruth, approx) >= 0.9 {
			goodQueries++
		}
	}

	assert.GreaterOrEqual(t, float64(goodQueries)/float64(queries), 0.8,
		"recall@10 >= 0.9 should hold on most queries")
}
