package hnsw

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hupe1980/vecgo/distance"
	"github.com/hupe1980/vecgo/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededConfig(dim int) Config {
	seed := int64(42)
	return Config{
		Dimension:      dim,
		Metric:         distance.Euclidean,
		M:              8,
		EfConstruction: 64,
		EfSearch:       32,
		Seed:           &seed,
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Dimension: 0, M: 8})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Dimension: 4, M: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInsertAndSearchKNN(t *testing.T) {
	h, err := New(seededConfig(2))
	require.NoError(t, err)

	points := [][]float32{
		{0, 0}, {1, 0}, {0, 1}, {10, 10}, {10, 11}, {11, 10},
	}
	ids := make([]uint64, len(points))
	for i, p := range points {
		id, err := h.Insert(p, nil)
		require.NoError(t, err)
		ids[i] = id
	}

	results, err := h.SearchKNN([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, ids[0], results[0].ID)
	assert.InDelta(t, float32(0), results[0].Distance, 1e-5)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestSearchKNN_EmptyIndex(t *testing.T) {
	h, err := New(seededConfig(3))
	require.NoError(t, err)

	results, err := h.SearchKNN([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchKNN_FewerThanK(t *testing.T) {
	h, err := New(seededConfig(2))
	require.NoError(t, err)

	_, err = h.Insert([]float32{0, 0}, nil)
	require.NoError(t, err)
	_, err = h.Insert([]float32{1, 1}, nil)
	require.NoError(t, err)

	results, err := h.SearchKNN([]float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestInsert_DimensionMismatch(t *testing.T) {
	h, err := New(seededConfig(3))
	require.NoError(t, err)

	_, err = h.Insert([]float32{1, 2}, nil)
	var dm *distance.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestDelete(t *testing.T) {
	h, err := New(seededConfig(2))
	require.NoError(t, err)

	var ids []uint64
	for i := 0; i < 20; i++ {
		id, err := h.Insert([]float32{float32(i), float32(i)}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, h.Delete(ids[5]))
	assert.Equal(t, 19, h.Len())

	results, err := h.SearchKNN([]float32{5, 5}, 20)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, ids[5], r.ID)
	}

	err = h.Delete(ids[5])
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestDelete_ReassignsEntryPoint(t *testing.T) {
	h, err := New(seededConfig(2))
	require.NoError(t, err)

	var ids []uint64
	for i := 0; i < 10; i++ {
		id, err := h.Insert([]float32{float32(i), float32(i)}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, id := range ids {
		require.NoError(t, h.Delete(id))
	}

	_, hasEntry := h.EntryPoint()
	assert.False(t, hasEntry)
	assert.Equal(t, 0, h.MaxLevel())
	assert.Equal(t, 0, h.Len())
}

func TestUpdate(t *testing.T) {
	h, err := New(seededConfig(2))
	require.NoError(t, err)

	id, err := h.Insert([]float32{0, 0}, []byte("v1"))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := h.Insert([]float32{float32(i + 1), float32(i + 1)}, nil)
		require.NoError(t, err)
	}

	require.NoError(t, h.Update(id, []float32{100, 100}, []byte("v2")))

	meta, ok := h.Metadata(id)
	require.True(t, ok)
	assert.Equal(t, "v2", string(meta))

	results, err := h.SearchKNN([]float32{100, 100}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)

	err = h.Update(999999, []float32{1, 1}, nil)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	h, err := New(seededConfig(3))
	require.NoError(t, err)

	vectors := GenerateRandomVectors(50, 3, 7)
	for _, v := range vectors {
		_, err := h.Insert(v, []byte("m"))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, h.Serialize(&buf))

	h2, err := Deserialize(&buf, seededConfig(3))
	require.NoError(t, err)

	assert.Equal(t, h.Len(), h2.Len())
	assert.Equal(t, h.MaxLevel(), h2.MaxLevel())

	ep1, ok1 := h.EntryPoint()
	ep2, ok2 := h2.EntryPoint()
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, ep1, ep2)

	query := vectors[0]
	r1, err := h.SearchKNN(query, 5)
	require.NoError(t, err)
	r2, err := h2.SearchKNN(query, 5)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestDeserialize_RejectsTruncatedBlob(t *testing.T) {
	h, err := New(seededConfig(2))
	require.NoError(t, err)
	_, err = h.Insert([]float32{1, 1}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.Serialize(&buf))

	// Drop the last two bytes, cutting the node's metadata length field
	// short, so the reader surfaces a read error.
	truncated := buf.Bytes()[:buf.Len()-2]
	_, err = Deserialize(bytes.NewReader(truncated), seededConfig(2))
	assert.Error(t, err)
}

func TestDeserialize_RejectsCorruptedMaxLevel(t *testing.T) {
	h, err := New(seededConfig(2))
	require.NoError(t, err)
	for _, v := range GenerateRandomVectors(20, 2, 11) {
		_, err := h.Insert(v, nil)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, h.Serialize(&buf))

	// max_level is the second uint32 in the stream, right after
	// node_count. Bump it by one so it no longer matches the highest
	// node level actually present.
	corrupted := append([]byte(nil), buf.Bytes()...)
	maxLevel := binary.LittleEndian.Uint32(corrupted[4:8])
	binary.LittleEndian.PutUint32(corrupted[4:8], maxLevel+1)

	_, err = Deserialize(bytes.NewReader(corrupted), seededConfig(2))
	assert.ErrorIs(t, err, persistence.ErrCorrupted)
}
