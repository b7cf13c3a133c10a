package persistence

import (
	"bytes"
	"io"
	"os"
	"testing"
)

func TestBinaryFormat_WriteRead(t *testing.T) {
	vectors := [][]float32{
		{1.0, 2.0, 3.0, 4.0},
		{5.0, 6.0, 7.0, 8.0},
	}

	var buf bytes.Buffer
	writer := NewBinaryIndexWriter(&buf)

	header := Header{
		Dimension:      4,
		DistanceMetric: 0,
		IndexType:      IndexTypeHNSW,
	}

	if err := writer.WriteHeader(header); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	if err := writer.WriteUint64(uint64(len(vectors))); err != nil {
		t.Fatalf("WriteUint64 failed: %v", err)
	}

	for _, vec := range vectors {
		if err := writer.WriteFloat32Slice(vec); err != nil {
			t.Fatalf("WriteFloat32Slice failed: %v", err)
		}
	}

	reader := NewBinaryIndexReader(&buf)

	readHeader, err := reader.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if readHeader.Dimension != header.Dimension {
		t.Errorf("Dimension mismatch: got %d, want %d", readHeader.Dimension, header.Dimension)
	}
	if readHeader.IndexType != header.IndexType {
		t.Errorf("IndexType mismatch: got %v, want %v", readHeader.IndexType, header.IndexType)
	}

	count, err := reader.ReadUint64()
	if err != nil {
		t.Fatalf("ReadUint64 failed: %v", err)
	}
	if count != uint64(len(vectors)) {
		t.Errorf("vector_count mismatch: got %d, want %d", count, len(vectors))
	}

	for i := 0; i < len(vectors); i++ {
		vec, err := reader.ReadFloat32Slice(int(header.Dimension))
		if err != nil {
			t.Fatalf("ReadFloat32Slice failed: %v", err)
		}

		for j, v := range vec {
			if v != vectors[i][j] {
				t.Errorf("Vector %d mismatch at index %d: got %f, want %f", i, j, v, vectors[i][j])
			}
		}
	}
}

func TestHeader_RejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NOPE")
	reader := NewBinaryIndexReader(&buf)
	if _, err := reader.ReadHeader(); err == nil {
		t.Fatal("expected error for bad magic, got nil")
	}
}

func TestHeader_RejectsEmptyFile(t *testing.T) {
	reader := NewBinaryIndexReader(bytes.NewReader(nil))
	_, err := reader.ReadHeader()
	if err != ErrEmptyFile {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestHeader_RejectsZeroDimension(t *testing.T) {
	var buf bytes.Buffer
	writer := NewBinaryIndexWriter(&buf)
	if err := writer.WriteHeader(Header{Dimension: 0, IndexType: IndexTypeHNSW}); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	reader := NewBinaryIndexReader(&buf)
	if _, err := reader.ReadHeader(); err == nil {
		t.Fatal("expected error for zero dimension, got nil")
	}
}

func TestWriteReadBytes(t *testing.T) {
	var buf bytes.Buffer
	writer := NewBinaryIndexWriter(&buf)
	payload := []byte("hello metadata")

	if err := writer.WriteBytes(payload); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}

	reader := NewBinaryIndexReader(&buf)
	got, err := reader.ReadBytes(MaxMetadataLen)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: got %q, want %q", got, payload)
	}
}

func TestWriteReadBytes_Empty(t *testing.T) {
	var buf bytes.Buffer
	writer := NewBinaryIndexWriter(&buf)
	if err := writer.WriteBytes(nil); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}
	reader := NewBinaryIndexReader(&buf)
	got, err := reader.ReadBytes(MaxMetadataLen)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty payload, got %v", got)
	}
}

func TestWriteReadBytes_RejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	writer := NewBinaryIndexWriter(&buf)
	if err := writer.WriteUint32(MaxMetadataLen + 1); err != nil {
		t.Fatalf("WriteUint32 failed: %v", err)
	}
	reader := NewBinaryIndexReader(&buf)
	if _, err := reader.ReadBytes(MaxMetadataLen); err == nil {
		t.Fatal("expected error for oversized length prefix, got nil")
	}
}

func TestSaveLoadFile(t *testing.T) {
	tmpfile := "test_index.bin"
	defer os.Remove(tmpfile)

	testVectors := []float32{1.1, 2.2, 3.3, 4.4}

	err := SaveToFile(tmpfile, func(w io.Writer) error {
		writer := NewBinaryIndexWriter(w)
		header := Header{
			Dimension:      4,
			DistanceMetric: 0,
			IndexType:      IndexTypeHNSW,
		}
		if err := writer.WriteHeader(header); err != nil {
			return err
		}
		if err := writer.WriteUint64(1); err != nil {
			return err
		}
		return writer.WriteFloat32Slice(testVectors)
	})
	if err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	var loadedVectors []float32
	err = LoadFromFile(tmpfile, func(r io.Reader) error {
		reader := NewBinaryIndexReader(r)
		if _, err := reader.ReadHeader(); err != nil {
			return err
		}
		if _, err := reader.ReadUint64(); err != nil {
			return err
		}
		var err error
		loadedVectors, err = reader.ReadFloat32Slice(4)
		return err
	})
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	for i, v := range loadedVectors {
		if v != testVectors[i] {
			t.Errorf("Vector mismatch at %d: got %f, want %f", i, v, testVectors[i])
		}
	}
}

func BenchmarkWriteFloat32Slice(b *testing.B) {
	vec := make([]float32, 128)
	for i := range vec {
		vec[i] = float32(i)
	}

	var buf bytes.Buffer
	writer := NewBinaryIndexWriter(&buf)

	b.ResetTimer()
	for b.Loop() {
		buf.Reset()
		writer.WriteFloat32Slice(vec)
	}
}

func BenchmarkReadFloat32Slice(b *testing.B) {
	vec := make([]float32, 128)
	for i := range vec {
		vec[i] = float32(i)
	}

	var buf bytes.Buffer
	writer := NewBinaryIndexWriter(&buf)
	writer.WriteFloat32Slice(vec)

	data := buf.Bytes()

	b.ResetTimer()
	for b.Loop() {
		reader := NewBinaryIndexReader(bytes.NewReader(data))
		reader.ReadFloat32Slice(128)
	}
}
