// Package phaseshift demodulates N equally spaced phase-shifted intensity
// images into a wrapped phase map and a modulation map.
//
// Supported step counts are 4, 6, 8 and 16. Before decoding, the sequence may
// be cyclically rotated and reversed to match the projector's pattern order.
package phaseshift

import (
	"fmt"

	"slphase/pkg/bitmap"
)

// Config fixes the decoding parameters before the first cycle.
type Config struct {
	// Steps is the number of images per period
	Steps int

	// Rotate moves image Rotate to the front of the sequence, 0 <= Rotate <= Steps
	Rotate int

	// Reverse flips the sequence order after rotation
	Reverse bool

	// Workers is the number of goroutines per bitmap; 0 uses every CPU
	Workers int
}

// Validate checks the step count and rotation offset.
func (c Config) Validate() error {
	if _, ok := kernels[c.Steps]; !ok {
		return bitmap.Configf("phase shift decoding with %d images is not implemented for other counts than %v",
			c.Steps, Supported())
	}
	if c.Rotate < 0 || c.Rotate > c.Steps {
		return bitmap.Configf("rotate offset %d outside [0, %d]", c.Rotate, c.Steps)
	}
	return nil
}

// Demodulator decodes T intensity sequences into F phase maps.
type Demodulator[T bitmap.Intensity, F bitmap.Phase] struct {
	cfg    Config
	kernel Kernel
}

// NewDemodulator validates cfg and binds the matching kernel.
func NewDemodulator[T bitmap.Intensity, F bitmap.Phase](cfg Config) (*Demodulator[T, F], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Demodulator[T, F]{cfg: cfg, kernel: kernels[cfg.Steps]}, nil
}

// Kernel returns the tap weights in use.
func (d *Demodulator[T, F]) Kernel() Kernel {
	return d.kernel
}

// Order applies the configured rotation and reversal.
func (d *Demodulator[T, F]) Order(seq bitmap.Sequence[T]) bitmap.Sequence[T] {
	out := seq.Rotate(d.cfg.Rotate)
	if d.cfg.Reverse {
		out = out.Reverse()
	}
	return out
}

// Demodulate computes the wrapped phase and the modulation of one sequence.
func (d *Demodulator[T, F]) Demodulate(seq bitmap.Sequence[T]) (*bitmap.Bitmap[F], *bitmap.Bitmap[T], error) {
	if len(seq) == 0 {
		return nil, nil, bitmap.Domainf("phase shift sequence is empty")
	}
	size, err := seq.UniformSize()
	if err != nil {
		return nil, nil, bitmap.Named(err, "phase shift sequence")
	}
	if len(seq) != d.kernel.Steps {
		return nil, nil, bitmap.Domainf("phase shift sequence has %d images, configured for %d",
			len(seq), d.kernel.Steps)
	}

	ordered := d.Order(seq)
	width := size.Width
	phase := bitmap.New[F](size.Width, size.Height)
	modulation := bitmap.New[T](size.Width, size.Height)

	bitmap.ParallelRows(size.Height, d.cfg.Workers, func(y0, y1 int) {
		samples := make([]float64, d.kernel.Steps)
		for i := y0 * width; i < y1*width; i++ {
			for k, img := range ordered {
				samples[k] = float64(img.Pix[i])
			}
			n, den := d.kernel.Components(samples)
			phase.Pix[i] = F(Phase(n, den))
			modulation.Pix[i] = bitmap.Saturate[T](d.kernel.Modulation(n, den))
		}
	})
	return phase, modulation, nil
}

func (d *Demodulator[T, F]) String() string {
	return fmt.Sprintf("phaseshift(steps=%d rotate=%d reverse=%t)", d.cfg.Steps, d.cfg.Rotate, d.cfg.Reverse)
}
