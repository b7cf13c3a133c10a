package vectorstore

import (
	"bytes"
	"testing"

	"github.com/hupe1980/vecgo/distance"
	"github.com/hupe1980/vecgo/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetUpdateDelete(t *testing.T) {
	s := New(3)

	require.NoError(t, s.Add(1, []float32{1, 2, 3}, []byte("a")))
	assert.Equal(t, 1, s.Count())

	v, m, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Equal(t, "a", string(m))

	require.NoError(t, s.Update(1, []float32{4, 5, 6}, []byte("b")))
	v, m, err = s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, v)
	assert.Equal(t, "b", string(m))

	require.NoError(t, s.Delete(1))
	assert.Equal(t, 0, s.Count())

	_, _, err = s.Get(1)
	assert.ErrorIs(t, err, ErrIDNotFound)
}

func TestAdd_DuplicateID(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Add(1, []float32{1, 1}, nil))

	err := s.Add(1, []float32{2, 2}, nil)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestAdd_DimensionMismatch(t *testing.T) {
	s := New(3)

	err := s.Add(1, []float32{1, 2}, nil)
	var dm *distance.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestUpdate_NotFound(t *testing.T) {
	s := New(2)
	err := s.Update(1, []float32{1, 1}, nil)
	assert.ErrorIs(t, err, ErrIDNotFound)
}

func TestDelete_NotFound(t *testing.T) {
	s := New(2)
	err := s.Delete(1)
	assert.ErrorIs(t, err, ErrIDNotFound)
}

func TestIds_Sorted(t *testing.T) {
	s := New(1)
	for _, id := range []uint64{5, 1, 3, 2, 4} {
		require.NoError(t, s.Add(id, []float32{float32(id)}, nil))
	}

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, s.Ids())
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Add(1, []float32{1, 1}, []byte("one")))
	require.NoError(t, s.Add(2, []float32{2, 2}, []byte("two")))
	require.NoError(t, s.Add(3, []float32{3, 3}, nil))

	var vecBuf, metaBuf bytes.Buffer
	require.NoError(t, s.SerializeVectors(persistence.NewBinaryIndexWriter(&vecBuf)))
	require.NoError(t, s.SerializeMetadata(persistence.NewBinaryIndexWriter(&metaBuf)))

	out := New(2)
	require.NoError(t, out.DeserializeVectors(persistence.NewBinaryIndexReader(&vecBuf)))
	require.NoError(t, out.DeserializeMetadata(persistence.NewBinaryIndexReader(&metaBuf)))

	assert.Equal(t, s.Ids(), out.Ids())

	for _, id := range s.Ids() {
		wantV, wantM, err := s.Get(id)
		require.NoError(t, err)
		gotV, gotM, err := out.Get(id)
		require.NoError(t, err)
		assert.Equal(t, wantV, gotV)
		assert.Equal(t, wantM, gotM)
	}
}

func TestDeserializeVectors_RejectsDimensionMismatch(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Add(1, []float32{1, 1}, nil))

	var buf bytes.Buffer
	require.NoError(t, s.SerializeVectors(persistence.NewBinaryIndexWriter(&buf)))

	out := New(3)
	err := out.DeserializeVectors(persistence.NewBinaryIndexReader(&buf))
	assert.Error(t, err)
}
