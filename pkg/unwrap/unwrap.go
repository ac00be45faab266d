// Package unwrap combines a Gray-code coarse index with a wrapped phase into
// an absolute phase map.
package unwrap

import (
	"math"

	"slphase/pkg/bitmap"
)

// Absolute unwraps a single pixel. The Gray code runs at half-period
// granularity: i/2 counts full 2*pi periods and the parity of i picks the
// sign of the fine residual |p|.
func Absolute(p float64, i uint64) float64 {
	residual := math.Abs(p)
	if i%2 == 0 {
		residual = -residual
	}
	return 2*math.Pi*float64(i/2) + residual
}

// Unwrapper turns (wrapped phase F, coarse index U) pairs into absolute phase F.
type Unwrapper[U bitmap.Index, F bitmap.Phase] struct {
	workers int
}

// NewUnwrapper returns an unwrapper using the given number of goroutines
// per bitmap (0 uses every CPU).
func NewUnwrapper[U bitmap.Index, F bitmap.Phase](workers int) *Unwrapper[U, F] {
	return &Unwrapper[U, F]{workers: workers}
}

// Unwrap computes the absolute phase map. Both inputs must share one size.
func (u *Unwrapper[U, F]) Unwrap(phase *bitmap.Bitmap[F], index *bitmap.Bitmap[U]) (*bitmap.Bitmap[F], error) {
	if err := bitmap.SameSize("wrapped phase", phase.Size(), "coarse index", index.Size()); err != nil {
		return nil, err
	}

	width := phase.Width
	out := bitmap.New[F](phase.Width, phase.Height)
	bitmap.ParallelRows(phase.Height, u.workers, func(y0, y1 int) {
		for i := y0 * width; i < y1*width; i++ {
			out.Pix[i] = F(Absolute(float64(phase.Pix[i]), uint64(index.Pix[i])))
		}
	})
	return out, nil
}
