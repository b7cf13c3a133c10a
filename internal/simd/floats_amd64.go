//go:build amd64 && !noasm

package simd

import "golang.org/x/sys/cpu"

// init selects a lane-width-unrolled kernel matching the widest vector ISA
// this CPU advertises. The kernels below are written in plain Go: they
// mirror the lane width an AVX2/AVX-512 kernel would process per iteration
// (8 and 16 float32 lanes respectively) so the instruction-level parallelism
// the Go compiler can extract tracks what the real vector unit would do,
// without depending on hand-written assembly we cannot verify here.
func init() {
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW:
		dotImpl = dotLanes16
		squaredL2Impl = squaredL2Lanes16
		manhattanImpl = manhattanLanes16
	case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
		dotImpl = dotLanes8
		squaredL2Impl = squaredL2Lanes8
		manhattanImpl = manhattanLanes8
	}
}

func dotLanes8(a, b []float32) float32 {
	var acc [8]float32
	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		for l := 0; l < 8; l++ {
			acc[l] += a[i+l] * b[i+l]
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func dotLanes16(a, b []float32) float32 {
	var acc [16]float32
	n := len(a)
	i := 0
	for ; i+16 <= n; i += 16 {
		for l := 0; l < 16; l++ {
			acc[l] += a[i+l] * b[i+l]
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func squaredL2Lanes8(a, b []float32) float32 {
	var acc [8]float32
	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		for l := 0; l < 8; l++ {
			d := a[i+l] - b[i+l]
			acc[l] += d * d
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func squaredL2Lanes16(a, b []float32) float32 {
	var acc [16]float32
	n := len(a)
	i := 0
	for ; i+16 <= n; i += 16 {
		for l := 0; l < 16; l++ {
			d := a[i+l] - b[i+l]
			acc[l] += d * d
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func manhattanLanes8(a, b []float32) float32 {
	var acc [8]float32
	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		for l := 0; l < 8; l++ {
			d := a[i+l] - b[i+l]
			if d < 0 {
				d = -d
			}
			acc[l] += d
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

func manhattanLanes16(a, b []float32) float32 {
	var acc [16]float32
	n := len(a)
	i := 0
	for ; i+16 <= n; i += 16 {
		for l := 0; l < 16; l++ {
			d := a[i+l] - b[i+l]
			if d < 0 {
				d = -d
			}
			acc[l] += d
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}
