package persistence

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// zstd encoders/decoders are expensive to set up; pool them the way
// the pack's diskann segment compression does, since Serialize/
// Deserialize can be called repeatedly in a hot save/load loop.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) { zstdEncoderPool.Put(enc) }

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) { zstdDecoderPool.Put(dec) }

// CompressZSTD compresses data as a single zstd frame. Used for the
// HNSW index_blob section, which is read and written as one opaque
// chunk, never range-accessed, so whole-buffer compression costs
// nothing in complexity.
func CompressZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)
	return enc.EncodeAll(data, nil)
}

// DecompressZSTD reverses CompressZSTD. uncompressedSizeHint sizes the
// destination buffer; 0 is a valid hint, just a less efficient one.
func DecompressZSTD(data []byte, uncompressedSizeHint int) ([]byte, error) {
	dec := getZstdDecoder()
	defer putZstdDecoder(dec)

	dst := make([]byte, 0, uncompressedSizeHint)
	out, err := dec.DecodeAll(data, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decode: %v", ErrCorrupted, err)
	}
	return out, nil
}

// CompressLZ4Block compresses data as a single LZ4 block, used for
// per-entry metadata payloads: small, independently-addressed opaque
// byte strings where a fast block codec beats zstd's frame overhead.
// Returns (nil, false) if the input didn't shrink, in which case the
// caller should store it uncompressed.
func CompressLZ4Block(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil || n == 0 || n >= len(data) {
		return nil, false
	}
	return buf[:n], true
}

// DecompressLZ4Block reverses CompressLZ4Block given the known
// uncompressed size.
func DecompressLZ4Block(compressed []byte, uncompressedSize int) ([]byte, error) {
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(compressed, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decode: %v", ErrCorrupted, err)
	}
	if n != uncompressedSize {
		return nil, fmt.Errorf("%w: lz4 decoded size mismatch", ErrCorrupted)
	}
	return dst, nil
}
