//go:build arm64 && !noasm

package simd

import "golang.org/x/sys/cpu"

// init selects the lane-unrolled kernel matching the widest vector width
// this CPU advertises. NEON processes 4 float32 lanes per 128-bit register;
// SVE2 can scale to much wider registers, but we unroll to a fixed width of
// 8 (two NEON-equivalent registers) to get a measurable win over the scalar
// loop without depending on hand-written assembly.
func init() {
	switch {
	case cpu.ARM64.HasSVE2:
		dotImpl = dotLanes8
		squaredL2Impl = squaredL2Lanes8
		manhattanImpl = manhattanLanes8
	case cpu.ARM64.HasASIMD:
		dotImpl = dotLanes4
		squaredL2Impl = squaredL2Lanes4
		manhattanImpl = manhattanLanes4
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

func dotLanes4(a, b []float32) float32 {
	var acc [4]float32
	n := len(a)
	i := 0
	for ; i+4 <= n; i += 4 {
		for l := 0; l < 4; l++ {
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

func squaredL2Lanes4(a, b []float32) float32 {
	var acc [4]float32
	n := len(a)
	i := 0
	for ; i+4 <= n; i += 4 {
		for l := 0; l < 4; l++ {
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

func manhattanLanes4(a, b []float32) float32 {
	var acc [4]float32
	n := len(a)
	i := 0
	for ; i+4 <= n; i += 4 {
		for l := 0; l < 4; l++ {
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
