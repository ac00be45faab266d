package pipeline

import (
	"slphase/pkg/bitmap"
	"slphase/pkg/correlate"
	"slphase/pkg/graycode"
	"slphase/pkg/phaseshift"
	"slphase/pkg/quality"
	"slphase/pkg/threshold"
	"slphase/pkg/unwrap"
)

// engine runs the four stages for one fixed choice of element types. The
// choice is made once in newEngine; afterwards every record is converted to
// the concrete types with correlate.As.
type engine interface {
	threshold(streams []correlate.Stream) ([]correlate.Record, error)
	demodulate(shift correlate.Stream) (phase, modulation []correlate.Record, err error)
	decode(thresholds, gray correlate.Stream) ([]correlate.Record, error)
	unwrap(phase, index correlate.Stream) ([]correlate.Record, error)
	summarize(modulation []correlate.Record, minModulation float64) []quality.Summary
	mask(modulation []correlate.Record, minModulation float64) []correlate.Record
}

type stages[T bitmap.Intensity, U bitmap.Index, F bitmap.Phase] struct {
	estimator   *threshold.Estimator[T]
	decoder     *graycode.Decoder[T, U]
	demodulator *phaseshift.Demodulator[T, F]
	unwrapper   *unwrap.Unwrapper[U, F]
	workers     int
}

func newEngine(opts Options, tcfg threshold.Config) (engine, error) {
	switch opts.Intensity {
	case bitmap.Uint8:
		return withIndex[uint8](opts, tcfg)
	case bitmap.Uint16:
		return withIndex[uint16](opts, tcfg)
	case bitmap.Uint32:
		return withIndex[uint32](opts, tcfg)
	case bitmap.Float32:
		return withIndex[float32](opts, tcfg)
	case bitmap.Float64:
		return withIndex[float64](opts, tcfg)
	}
	return nil, bitmap.Configf("unsupported intensity type %s", opts.Intensity)
}

func withIndex[T bitmap.Intensity](opts Options, tcfg threshold.Config) (engine, error) {
	switch opts.Index {
	case bitmap.Uint8:
		return withPhase[T, uint8](opts, tcfg)
	case bitmap.Uint16:
		return withPhase[T, uint16](opts, tcfg)
	case bitmap.Uint32:
		return withPhase[T, uint32](opts, tcfg)
	}
	return nil, bitmap.Configf("unsupported index type %s", opts.Index)
}

func withPhase[T bitmap.Intensity, U bitmap.Index](opts Options, tcfg threshold.Config) (engine, error) {
	switch opts.Phase {
	case bitmap.Float32:
		return newStages[T, U, float32](opts, tcfg)
	case bitmap.Float64:
		return newStages[T, U, float64](opts, tcfg)
	}
	return nil, bitmap.Configf("unsupported phase type %s", opts.Phase)
}

func newStages[T bitmap.Intensity, U bitmap.Index, F bitmap.Phase](opts Options, tcfg threshold.Config) (*stages[T, U, F], error) {
	estimator, err := threshold.NewEstimator[T](tcfg)
	if err != nil {
		return nil, err
	}
	demodulator, err := phaseshift.NewDemodulator[T, F](opts.PhaseShift)
	if err != nil {
		return nil, err
	}
	return &stages[T, U, F]{
		estimator:   estimator,
		decoder:     graycode.NewDecoder[T, U](opts.Workers),
		demodulator: demodulator,
		unwrapper:   unwrap.NewUnwrapper[U, F](opts.Workers),
		workers:     opts.Workers,
	}, nil
}

func (s *stages[T, U, F]) threshold(streams []correlate.Stream) ([]correlate.Record, error) {
	if err := correlate.SameKind(streams...); err != nil {
		return nil, err
	}
	tuples, err := correlate.Zip(streams...)
	if err != nil {
		return nil, err
	}

	out := make([]correlate.Record, 0, len(tuples))
	for _, t := range tuples {
		var in threshold.Inputs[T]
		switch s.estimator.Mode() {
		case threshold.CosAverage:
			if in.Cos, err = correlate.As[bitmap.Sequence[T]](t, 0, StreamCos); err != nil {
				return nil, err
			}
		case threshold.BrightDark:
			if in.Dark, err = correlate.As[*bitmap.Bitmap[T]](t, 1, StreamDark); err != nil {
				return nil, err
			}
			fallthrough
		case threshold.BrightOnly:
			if in.Bright, err = correlate.As[*bitmap.Bitmap[T]](t, 0, StreamBright); err != nil {
				return nil, err
			}
		}

		th, err := s.estimator.Estimate(in)
		if err != nil {
			return nil, cycleError(err, t.ID, "threshold")
		}
		out = append(out, correlate.Record{ID: t.ID, Value: th})
	}
	return out, nil
}

func (s *stages[T, U, F]) demodulate(shift correlate.Stream) ([]correlate.Record, []correlate.Record, error) {
	tuples, err := correlate.Zip(shift)
	if err != nil {
		return nil, nil, err
	}

	phases := make([]correlate.Record, 0, len(tuples))
	mods := make([]correlate.Record, 0, len(tuples))
	for _, t := range tuples {
		seq, err := correlate.As[bitmap.Sequence[T]](t, 0, StreamShift)
		if err != nil {
			return nil, nil, err
		}
		phase, mod, err := s.demodulator.Demodulate(seq)
		if err != nil {
			return nil, nil, cycleError(err, t.ID, "phase shift")
		}
		phases = append(phases, correlate.Record{ID: t.ID, Value: phase})
		mods = append(mods, correlate.Record{ID: t.ID, Value: mod})
	}
	return phases, mods, nil
}

func (s *stages[T, U, F]) decode(thresholds, gray correlate.Stream) ([]correlate.Record, error) {
	if err := correlate.SameKind(thresholds, gray); err != nil {
		return nil, err
	}
	tuples, err := correlate.Zip(thresholds, gray)
	if err != nil {
		return nil, err
	}

	out := make([]correlate.Record, 0, len(tuples))
	for _, t := range tuples {
		th, err := correlate.As[*bitmap.Bitmap[T]](t, 0, StreamThreshold)
		if err != nil {
			return nil, err
		}
		patterns, err := correlate.As[bitmap.Sequence[T]](t, 1, StreamGray)
		if err != nil {
			return nil, err
		}
		index, err := s.decoder.Decode(th, patterns)
		if err != nil {
			return nil, cycleError(err, t.ID, "gray code")
		}
		out = append(out, correlate.Record{ID: t.ID, Value: index})
	}
	return out, nil
}

func (s *stages[T, U, F]) unwrap(phase, index correlate.Stream) ([]correlate.Record, error) {
	tuples, err := correlate.Zip(phase, index)
	if err != nil {
		return nil, err
	}

	out := make([]correlate.Record, 0, len(tuples))
	for _, t := range tuples {
		p, err := correlate.As[*bitmap.Bitmap[F]](t, 0, StreamPhase)
		if err != nil {
			return nil, err
		}
		i, err := correlate.As[*bitmap.Bitmap[U]](t, 1, StreamIndex)
		if err != nil {
			return nil, err
		}
		abs, err := s.unwrapper.Unwrap(p, i)
		if err != nil {
			return nil, cycleError(err, t.ID, "unwrap")
		}
		out = append(out, correlate.Record{ID: t.ID, Value: abs})
	}
	return out, nil
}

func (s *stages[T, U, F]) summarize(modulation []correlate.Record, minModulation float64) []quality.Summary {
	out := make([]quality.Summary, 0, len(modulation))
	for _, rec := range modulation {
		if mod, ok := rec.Value.(*bitmap.Bitmap[T]); ok {
			out = append(out, quality.Summarize(mod, minModulation))
		}
	}
	return out
}

func (s *stages[T, U, F]) mask(modulation []correlate.Record, minModulation float64) []correlate.Record {
	out := make([]correlate.Record, 0, len(modulation))
	for _, rec := range modulation {
		if mod, ok := rec.Value.(*bitmap.Bitmap[T]); ok {
			out = append(out, correlate.Record{ID: rec.ID, Value: quality.Mask(mod, minModulation, s.workers)})
		}
	}
	return out
}
