package phaseshift

import (
	"math"
	"sort"
)

// Kernel holds the fixed tap weights for one step count. The numerator and
// denominator are linear combinations of the N samples of one pixel; together
// they are a single-frequency lock-in demodulation at the pattern frequency.
type Kernel struct {
	// Steps is the number of phase-shifted images in one period
	Steps int

	// Num weights the samples into the sine-like component
	Num []float64

	// Den weights the samples into the cosine-like component
	Den []float64

	// Scale converts the magnitude of (Num, Den) into modulation
	Scale float64
}

var (
	half    = 0.5
	root2h  = math.Sqrt2 / 2
	root3h  = math.Sqrt(3) / 2
	sin8th  = math.Sqrt(2-math.Sqrt2) / 2 // sin(pi/8)
	sin38th = math.Sqrt(2+math.Sqrt2) / 2 // sin(3pi/8)
)

var kernels = map[int]Kernel{
	4: {
		Steps: 4,
		// n = v1 - v3, d = v2 - v0
		Num:   []float64{0, 1, 0, -1},
		Den:   []float64{-1, 0, 1, 0},
		Scale: 1,
	},
	6: {
		Steps: 6,
		// n = sqrt(3)/2 (v2 + v1 - v5 - v4), d = 1/2 (v4 - v5 - v1 + v2 + v3 - v0)
		Num:   []float64{0, root3h, root3h, 0, -root3h, -root3h},
		Den:   []float64{-half, -half, half, half, half, -half},
		Scale: 1 / 1.5,
	},
	8: {
		Steps: 8,
		// n = sqrt(2)/2 (v5 + v7 - v3 - v1) + v6 - v2
		// d = sqrt(2)/2 (v1 + v7 - v3 - v5) + v0 - v4
		Num:   []float64{0, -root2h, -1, -root2h, 0, root2h, 1, root2h},
		Den:   []float64{1, root2h, 0, -root2h, -1, -root2h, 0, root2h},
		Scale: 1.0 / 2,
	},
	16: {
		Steps: 16,
		// Same convention as the 8-tap kernel: n = -sum v_k sin(2 pi k/16),
		// d = sum v_k cos(2 pi k/16)
		Num: []float64{
			0, -sin8th, -root2h, -sin38th, -1, -sin38th, -root2h, -sin8th,
			0, sin8th, root2h, sin38th, 1, sin38th, root2h, sin8th,
		},
		Den: []float64{
			1, sin38th, root2h, sin8th, 0, -sin8th, -root2h, -sin38th,
			-1, -sin38th, -root2h, -sin8th, 0, sin8th, root2h, sin38th,
		},
		Scale: 1.0 / 8,
	},
}

// Supported returns the step counts that have a kernel, ascending.
func Supported() []int {
	out := make([]int, 0, len(kernels))
	for n := range kernels {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// KernelFor returns the kernel for n steps.
func KernelFor(n int) (Kernel, bool) {
	k, ok := kernels[n]
	return k, ok
}

// Components returns the numerator and denominator for one pixel's samples
// in decoding order. Every kernel is antisymmetric over half a period
// (w[k+N/2] == -w[k]), so samples are differenced first; a flat pixel then
// yields exact zeros.
func (k Kernel) Components(samples []float64) (n, d float64) {
	h := k.Steps / 2
	for i := 0; i < h; i++ {
		diff := samples[i] - samples[i+h]
		n += k.Num[i] * diff
		d += k.Den[i] * diff
	}
	return n, d
}

// Phase is atan2(n, d) restricted to (-pi, pi]. A pixel without any
// modulation (n = d = 0) decodes to pi/2.
func Phase(n, d float64) float64 {
	if n == 0 && d == 0 {
		return math.Pi / 2
	}
	p := math.Atan2(n, d)
	if p == -math.Pi {
		p = math.Pi
	}
	return p
}

// Modulation returns the scaled magnitude of (n, d).
func (k Kernel) Modulation(n, d float64) float64 {
	return k.Scale * math.Sqrt(n*n+d*d)
}
