// Package persistence provides high-performance binary serialization for vector indexes.
// This replaced a slower, reflection-heavy encoding used in earlier iterations.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/hupe1980/vecgo/internal/conv"
)

// BinaryIndexWriter writes indexes in optimized binary format.
type BinaryIndexWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
	checksum  uint32
}

// NewBinaryIndexWriter creates a new binary writer.
func NewBinaryIndexWriter(w io.Writer) *BinaryIndexWriter {
	return &BinaryIndexWriter{
		w:         w,
		byteOrder: binary.LittleEndian, // Native on x86/ARM
	}
}

// WriteHeader writes the fixed .zvdb prefix: magic, version, dimension,
// distance metric and index type (14 bytes total).
func (bw *BinaryIndexWriter) WriteHeader(header Header) error {
	if _, err := bw.w.Write([]byte(Magic)); err != nil {
		return err
	}
	if err := binary.Write(bw.w, bw.byteOrder, Version); err != nil {
		return err
	}
	if err := binary.Write(bw.w, bw.byteOrder, header.Dimension); err != nil {
		return err
	}
	if err := binary.Write(bw.w, bw.byteOrder, header.DistanceMetric); err != nil {
		return err
	}
	return binary.Write(bw.w, bw.byteOrder, header.IndexType)
}

// WriteUint64 writes a single little-endian uint64 (used for vector_count
// and other scalar length-prefix fields).
func (bw *BinaryIndexWriter) WriteUint64(v uint64) error {
	return binary.Write(bw.w, bw.byteOrder, v)
}

// WriteUint32 writes a single little-endian uint32.
func (bw *BinaryIndexWriter) WriteUint32(v uint32) error {
	return binary.Write(bw.w, bw.byteOrder, v)
}

// WriteUint8 writes a single byte.
func (bw *BinaryIndexWriter) WriteUint8(v uint8) error {
	_, err := bw.w.Write([]byte{v})
	return err
}

// WriteBytes writes a length-prefixed (u32) byte blob, used for the
// metadata and per-node opaque metadata sections.
func (bw *BinaryIndexWriter) WriteBytes(b []byte) error {
	n, err := conv.IntToUint32(len(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if err := bw.WriteUint32(n); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err = bw.w.Write(b)
	return err
}

// WriteFloat32Slice writes a float32 slice as raw bytes (zero-copy compatible).
// Safety: Validates alignment before unsafe conversion.
func (bw *BinaryIndexWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}

	// Verify alignment before unsafe operation
	if err := validateFloat32SliceAlignment(vec); err != nil {
		return err
	}

	// Direct memory conversion (no allocation)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteUint32Slice writes a uint32 slice as raw bytes.
// Safety: Validates alignment before unsafe conversion.
func (bw *BinaryIndexWriter) WriteUint32Slice(slice []uint32) error {
	if len(slice) == 0 {
		return nil
	}

	// Verify alignment before unsafe operation
	if err := validateUint32SliceAlignment(slice); err != nil {
		return err
	}

	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteUint64Slice writes a uint64 slice as raw bytes.
// Safety: Validates alignment before unsafe conversion.
func (bw *BinaryIndexWriter) WriteUint64Slice(slice []uint64) error {
	if len(slice) == 0 {
		return nil
	}

	// Verify alignment before unsafe operation
	if err := validateUint64SliceAlignment(slice); err != nil {
		return err
	}

	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*8)
	_, err := bw.w.Write(byteSlice)
	return err
}

// BinaryIndexReader reads indexes from binary format.
type BinaryIndexReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
}

// NewBinaryIndexReader creates a new binary reader.
func NewBinaryIndexReader(r io.Reader) *BinaryIndexReader {
	return &BinaryIndexReader{
		r:         r,
		byteOrder: binary.LittleEndian,
	}
}

// ReadHeader reads and validates the fixed .zvdb prefix.
func (br *BinaryIndexReader) ReadHeader() (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(br.r, magic[:]); err != nil {
		if err == io.EOF {
			return Header{}, ErrEmptyFile
		}
		return Header{}, err
	}
	if string(magic[:]) != Magic {
		return Header{}, fmt.Errorf("%w: got %q", ErrInvalidMagicNumber, magic[:])
	}

	var version uint32
	if err := binary.Read(br.r, br.byteOrder, &version); err != nil {
		return Header{}, ErrTruncated
	}
	if version != Version {
		return Header{}, fmt.Errorf("%w: got %d", ErrUnsupportedVersion, version)
	}

	var h Header
	if err := binary.Read(br.r, br.byteOrder, &h.Dimension); err != nil {
		return Header{}, ErrTruncated
	}
	if err := binary.Read(br.r, br.byteOrder, &h.DistanceMetric); err != nil {
		return Header{}, ErrTruncated
	}
	if err := binary.Read(br.r, br.byteOrder, &h.IndexType); err != nil {
		return Header{}, ErrTruncated
	}

	if h.Dimension == 0 {
		return Header{}, fmt.Errorf("%w: dimension must be > 0", ErrInvalidConfig)
	}
	if h.IndexType != IndexTypeHNSW {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedIndex, h.IndexType)
	}

	return h, nil
}

// ReadUint64 reads a single little-endian uint64.
func (br *BinaryIndexReader) ReadUint64() (uint64, error) {
	var v uint64
	err := binary.Read(br.r, br.byteOrder, &v)
	return v, err
}

// ReadUint32 reads a single little-endian uint32.
func (br *BinaryIndexReader) ReadUint32() (uint32, error) {
	var v uint32
	err := binary.Read(br.r, br.byteOrder, &v)
	return v, err
}

// ReadUint8 reads a single byte.
func (br *BinaryIndexReader) ReadUint8() (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes reads a length-prefixed (u32) byte blob. maxLen bounds the
// prefix to guard against corrupted inputs driving a huge allocation.
func (br *BinaryIndexReader) ReadBytes(maxLen uint32) ([]byte, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, fmt.Errorf("%w: length %d exceeds limit %d", ErrCorrupted, n, maxLen)
	}
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadFloat32Slice reads a float32 slice.
func (br *BinaryIndexReader) ReadFloat32Slice(count int) ([]float32, error) {
	if count == 0 {
		return nil, nil
	}
	vec := make([]float32, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), count*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return vec, nil
}

// ReadFloat32SliceInto reads a float32 slice into the provided buffer.
func (br *BinaryIndexReader) ReadFloat32SliceInto(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return err
	}
	return nil
}

// ReadUint32Slice reads a uint32 slice.
func (br *BinaryIndexReader) ReadUint32Slice(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]uint32, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return slice, nil
}

// ReadUint64Slice reads a uint64 slice.
func (br *BinaryIndexReader) ReadUint64Slice(count int) ([]uint64, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]uint64, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*8)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return slice, nil
}

// SaveToFile is a helper to save data to a file.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	// Match typical file permissions (best-effort).
	_ = tmp.Chmod(0644)

	// Use buffered writer to batch writes (critical for performance)
	buf := bufio.NewWriterSize(tmp, 256*1024) // 256KB buffer
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Atomically replace target.
	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}

// LoadFromFile is a helper to load data from a file.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	// Use buffered reader to batch reads
	buf := bufio.NewReaderSize(f, 256*1024) // 256KB buffer
	return readFunc(buf)
}
