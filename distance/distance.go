// Package distance computes the distance between two equal-length dense
// vectors. All functions are pure and total over their declared domain;
// mismatched lengths are reported as DimensionMismatch rather than panicking
// so callers at the index boundary can turn them into typed errors.
//
// Kernels dispatch to internal/simd, which selects a lane-width-unrolled
// implementation at init time based on detected CPU features (AVX2/AVX-512
// on amd64, NEON/SVE2 on arm64) and falls back to a scalar loop otherwise.
package distance

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/vecgo/internal/simd"
)

// ErrDimensionMismatch is returned when two vectors passed to a distance
// kernel have different lengths.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("distance: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Metric identifies a distance function over dense vectors.
type Metric uint8

const (
	// Euclidean is the true L2 distance (square root of summed squared differences).
	Euclidean Metric = iota
	// Manhattan is the L1 distance (sum of absolute differences).
	Manhattan
	// Cosine is acos(clamp(cos_similarity, -1, 1)) / pi, a proper metric in [0, 1].
	Cosine
)

// String returns the canonical name of the metric, matching the on-disk
// distance_metric byte ordering of the persistence format.
func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "Euclidean"
	case Manhattan:
		return "Manhattan"
	case Cosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// ParseMetric parses a metric name as returned by String.
func ParseMetric(s string) (Metric, bool) {
	switch s {
	case "Euclidean":
		return Euclidean, true
	case "Manhattan":
		return Manhattan, true
	case "Cosine":
		return Cosine, true
	default:
		return 0, false
	}
}

// DefinedForInts reports whether m has defined semantics over integer scalar
// types. Only Cosine is restricted (it requires a floating-point magnitude).
func (m Metric) DefinedForInts() bool {
	return m != Cosine
}

// Func computes the distance between two float32 vectors of equal length.
type Func func(a, b []float32) (float32, error)

// Provider returns the Func for m.
func Provider(m Metric) (Func, error) {
	switch m {
	case Euclidean:
		return EuclideanDistance, nil
	case Manhattan:
		return ManhattanDistance, nil
	case Cosine:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("distance: unsupported metric %v", m)
	}
}

// EuclideanDistance returns the true L2 distance between a and b.
func EuclideanDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	return simd.Sqrt(simd.SquaredL2(a, b)), nil
}

// SquaredEuclideanDistance returns the squared L2 distance, skipping the
// square root. HNSW graph construction and search only need ordering by
// distance, so callers on the hot path should prefer this over
// EuclideanDistance to save a sqrt per comparison.
func SquaredEuclideanDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	return simd.SquaredL2(a, b), nil
}

// ManhattanDistance returns the L1 distance between a and b.
func ManhattanDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	return simd.Manhattan(a, b), nil
}

// CosineDistance returns acos(clamp(dot(a,b)/(|a|*|b|), -1, 1)) / pi.
//
// If either vector has zero magnitude the result is 0 when both are zero,
// else 1. This is a proper metric in [0, 1]; it is the convention this
// package commits to (as opposed to `1 - cosine_similarity`).
func CosineDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}

	na2 := simd.Dot(a, a)
	nb2 := simd.Dot(b, b)

	if na2 == 0 || nb2 == 0 {
		if na2 == 0 && nb2 == 0 {
			return 0, nil
		}
		return 1, nil
	}

	dot := simd.Dot(a, b)
	cos := float64(dot) / (math.Sqrt(float64(na2)) * math.Sqrt(float64(nb2)))
	cos = math.Max(-1, math.Min(1, cos))

	return float32(math.Acos(cos) / math.Pi), nil
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := simd.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / simd.Sqrt(norm2)
	simd.ScaleInPlace(v, inv)
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}
