// Package threshold derives the per-pixel binarization threshold used to read
// Gray-code pattern images.
//
// Three input combinations are supported and are mutually exclusive:
//
//   - bright only: the bright reference halved; only valid when the scene is
//     known to sit on a dark (ambient black) background
//   - bright and dark: the midpoint between the two references
//   - cos average: the per-pixel mean of the phase-shifted cos images
//
// The combination is fixed once when the Estimator is built.
package threshold

import (
	"slphase/pkg/bitmap"
)

// Mode is the input combination an Estimator works from.
type Mode int

const (
	BrightOnly Mode = iota + 1
	BrightDark
	CosAverage
)

func (m Mode) String() string {
	switch m {
	case BrightOnly:
		return "bright"
	case BrightDark:
		return "bright+dark"
	case CosAverage:
		return "cos-average"
	}
	return "unknown"
}

// Config describes which inputs are connected.
type Config struct {
	// Bright is set when a bright reference image is connected
	Bright bool

	// Dark is set when a dark reference image is connected
	Dark bool

	// Cos is set when the cos image sequence is connected for averaging
	Cos bool

	// DarkEnvironment asserts the scene background is black, which makes a
	// bright-only threshold meaningful
	DarkEnvironment bool

	// Workers is the number of goroutines per bitmap; 0 uses every CPU
	Workers int
}

// SelectMode picks the mode implied by the connected inputs.
func SelectMode(cfg Config) (Mode, error) {
	switch {
	case cfg.Cos && (cfg.Bright || cfg.Dark):
		return 0, bitmap.Configf("cos-average combined with bright/dark inputs")
	case cfg.Cos:
		return CosAverage, nil
	case cfg.Bright && cfg.Dark:
		return BrightDark, nil
	case cfg.Bright:
		if !cfg.DarkEnvironment {
			return 0, bitmap.Configf("bright without dark requires dark-environment flag")
		}
		return BrightOnly, nil
	case cfg.Dark:
		return 0, bitmap.Configf("dark without bright is not a usable threshold input")
	}
	return 0, bitmap.Configf("no enabled inputs")
}

// Inputs carries the images of one exec cycle. Only the fields matching the
// estimator's mode are read.
type Inputs[T bitmap.Intensity] struct {
	Bright *bitmap.Bitmap[T]
	Dark   *bitmap.Bitmap[T]
	Cos    bitmap.Sequence[T]
}

// Estimator computes threshold maps for one fixed mode.
type Estimator[T bitmap.Intensity] struct {
	mode    Mode
	workers int
}

// NewEstimator validates the input selection and returns an estimator bound
// to the resulting mode.
func NewEstimator[T bitmap.Intensity](cfg Config) (*Estimator[T], error) {
	mode, err := SelectMode(cfg)
	if err != nil {
		return nil, err
	}
	return &Estimator[T]{mode: mode, workers: cfg.Workers}, nil
}

// Mode returns the selected input combination.
func (e *Estimator[T]) Mode() Mode {
	return e.mode
}

// Estimate computes the threshold for one cycle using the configured mode.
func (e *Estimator[T]) Estimate(in Inputs[T]) (*bitmap.Bitmap[T], error) {
	switch e.mode {
	case BrightOnly:
		if in.Bright == nil {
			return nil, bitmap.Domainf("bright image missing")
		}
		return e.EstimateBright(in.Bright), nil
	case BrightDark:
		if in.Bright == nil || in.Dark == nil {
			return nil, bitmap.Domainf("bright and dark images are both required")
		}
		return e.EstimateBrightDark(in.Bright, in.Dark)
	case CosAverage:
		return e.EstimateCosAverage(in.Cos)
	}
	return nil, bitmap.Configf("threshold mode %d not supported", int(e.mode))
}

// EstimateBright halves every sample of the bright image.
func (e *Estimator[T]) EstimateBright(bright *bitmap.Bitmap[T]) *bitmap.Bitmap[T] {
	out := bitmap.New[T](bright.Width, bright.Height)
	bitmap.ParallelRows(bright.Height, e.workers, func(y0, y1 int) {
		for i := y0 * bright.Width; i < y1*bright.Width; i++ {
			out.Pix[i] = bright.Pix[i] / 2
		}
	})
	return out
}

// EstimateBrightDark returns dark + (bright-dark)/2 where bright exceeds dark
// and zero elsewhere.
func (e *Estimator[T]) EstimateBrightDark(bright, dark *bitmap.Bitmap[T]) (*bitmap.Bitmap[T], error) {
	if err := bitmap.SameSize("bright", bright.Size(), "dark", dark.Size()); err != nil {
		return nil, err
	}

	out := bitmap.New[T](bright.Width, bright.Height)
	bitmap.ParallelRows(bright.Height, e.workers, func(y0, y1 int) {
		for i := y0 * bright.Width; i < y1*bright.Width; i++ {
			out.Pix[i] = Midpoint(bright.Pix[i], dark.Pix[i])
		}
	})
	return out, nil
}

// Midpoint is the bright/dark rule for a single pixel.
func Midpoint[T bitmap.Intensity](bright, dark T) T {
	if bright > dark {
		return dark + (bright-dark)/2
	}
	return 0
}
