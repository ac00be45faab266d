// Package quality summarizes modulation maps and gates phase maps by signal
// strength. Low modulation means the phase at that pixel is unreliable.
package quality

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"slphase/pkg/bitmap"
)

// Valid and Invalid are the mask values written by Mask.
const (
	Valid   uint8 = 255
	Invalid uint8 = 0
)

// Summary describes the distribution of a modulation map.
type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64

	// ValidFraction is the share of pixels at or above the gate
	ValidFraction float64
}

// Summarize computes distribution statistics of mod and the fraction of
// pixels whose modulation reaches minModulation.
func Summarize[T bitmap.Intensity](mod *bitmap.Bitmap[T], minModulation float64) Summary {
	if len(mod.Pix) == 0 {
		return Summary{}
	}

	values := make([]float64, len(mod.Pix))
	valid := 0
	for i, v := range mod.Pix {
		values[i] = float64(v)
		if values[i] >= minModulation {
			valid++
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	s := Summary{
		Mean:          mean,
		StdDev:        std,
		Min:           floats.Min(values),
		Max:           floats.Max(values),
		ValidFraction: float64(valid) / float64(len(values)),
	}
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}

	sort.Float64s(values)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	return s
}

// Mask marks pixels with modulation >= minModulation as Valid.
func Mask[T bitmap.Intensity](mod *bitmap.Bitmap[T], minModulation float64, workers int) *bitmap.Bitmap[uint8] {
	out := bitmap.New[uint8](mod.Width, mod.Height)
	bitmap.ParallelRows(mod.Height, workers, func(y0, y1 int) {
		for i := y0 * mod.Width; i < y1*mod.Width; i++ {
			if float64(mod.Pix[i]) >= minModulation {
				out.Pix[i] = Valid
			}
		}
	})
	return out
}

// ApplyMask returns a copy of phase with every Invalid pixel replaced by fill.
func ApplyMask[F bitmap.Phase](phase *bitmap.Bitmap[F], mask *bitmap.Bitmap[uint8], fill F) (*bitmap.Bitmap[F], error) {
	if err := bitmap.SameSize("phase", phase.Size(), "mask", mask.Size()); err != nil {
		return nil, err
	}
	out := phase.Clone()
	for i, m := range mask.Pix {
		if m == Invalid {
			out.Pix[i] = fill
		}
	}
	return out, nil
}
