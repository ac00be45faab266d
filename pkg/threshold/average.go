package threshold

import (
	"slphase/pkg/bitmap"
)

// EstimateCosAverage returns the per-pixel mean of the cos sequence. Integer
// samples are summed in uint64 and divided with truncation; float samples are
// summed in float64.
func (e *Estimator[T]) EstimateCosAverage(cos bitmap.Sequence[T]) (*bitmap.Bitmap[T], error) {
	size, err := cos.UniformSize()
	if err != nil {
		return nil, bitmap.Named(err, "cos sequence")
	}

	out := bitmap.New[T](size.Width, size.Height)
	if bitmap.IsFloat[T]() {
		averageFloat(out, cos, e.workers)
	} else {
		averageInt(out, cos, e.workers)
	}
	return out, nil
}

func averageInt[T bitmap.Intensity](out *bitmap.Bitmap[T], cos bitmap.Sequence[T], workers int) {
	n := uint64(len(cos))
	bitmap.ParallelRows(out.Height, workers, func(y0, y1 int) {
		acc := make([]uint64, out.Width)
		for y := y0; y < y1; y++ {
			for i := range acc {
				acc[i] = 0
			}
			for _, img := range cos {
				for x, v := range img.Row(y) {
					acc[x] += uint64(v)
				}
			}
			row := out.Row(y)
			for x, sum := range acc {
				row[x] = T(sum / n)
			}
		}
	})
}

func averageFloat[T bitmap.Intensity](out *bitmap.Bitmap[T], cos bitmap.Sequence[T], workers int) {
	n := float64(len(cos))
	bitmap.ParallelRows(out.Height, workers, func(y0, y1 int) {
		acc := make([]float64, out.Width)
		for y := y0; y < y1; y++ {
			for i := range acc {
				acc[i] = 0
			}
			for _, img := range cos {
				for x, v := range img.Row(y) {
					acc[x] += float64(v)
				}
			}
			row := out.Row(y)
			for x, sum := range acc {
				row[x] = T(sum / n)
			}
		}
	})
}
