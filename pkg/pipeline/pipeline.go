// Package pipeline hosts the four decoding stages for a stream of exec cycles.
//
// For each cycle it fetches the records of every connected input, runs
// threshold estimation and phase-shift demodulation concurrently, then Gray
// decoding and unwrapping, and hands every output record to a Sink. Element
// types, the threshold mode and the phase-shift parameters are fixed in New
// and never change afterwards.
package pipeline

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"slphase/pkg/bitmap"
	"slphase/pkg/config"
	"slphase/pkg/correlate"
	"slphase/pkg/phaseshift"
	"slphase/pkg/quality"
	"slphase/pkg/threshold"
)

// Stream names used for inputs, outputs and error messages.
const (
	StreamBright     = "bright"
	StreamDark       = "dark"
	StreamCos        = "cos"
	StreamGray       = "gray"
	StreamShift      = "phase shift"
	StreamThreshold  = "threshold"
	StreamIndex      = "index"
	StreamPhase      = "phase"
	StreamModulation = "modulation"
	StreamAbsolute   = "absolute"
	StreamMask       = "mask"
)

// Inputs are the sources a host connects. A nil source is not connected;
// the threshold mode follows from which of Bright, Dark and Cos are set.
type Inputs struct {
	Bright Source
	Dark   Source
	Cos    Source
	Gray   Source
	Shift  Source
}

// Options fixes the element types and stage parameters.
type Options struct {
	Intensity bitmap.Kind
	Index     bitmap.Kind
	Phase     bitmap.Kind

	// DarkEnvironment allows a bright-only threshold
	DarkEnvironment bool

	// PhaseShift configures the demodulator
	PhaseShift phaseshift.Config

	// Workers is the number of goroutines per bitmap; 0 uses every CPU
	Workers int

	// MinModulation is the quality gate used for summaries and masks
	MinModulation float64

	// EmitMask adds a quality mask record per cycle on StreamMask
	EmitMask bool
}

// OptionsFromConfig builds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	intensity, index, phase, err := cfg.Kinds()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Intensity:       intensity,
		Index:           index,
		Phase:           phase,
		DarkEnvironment: cfg.Threshold.DarkEnvironment,
		PhaseShift:      cfg.PhaseShiftConfig(),
		Workers:         cfg.Processing.NumCores,
		MinModulation:   cfg.Quality.MinModulation,
		EmitMask:        cfg.Output.SaveMask,
	}, nil
}

// Result holds every record produced for one cycle.
type Result struct {
	ID         correlate.ID
	Threshold  []correlate.Record
	Phase      []correlate.Record
	Modulation []correlate.Record
	Index      []correlate.Record
	Absolute   []correlate.Record
	Mask       []correlate.Record
	Quality    []quality.Summary
}

// Pipeline runs exec cycles against a fixed set of inputs.
type Pipeline struct {
	opts   Options
	inputs Inputs
	mode   threshold.Mode
	engine engine
	log    logrus.FieldLogger
}

// New validates the input selection and options and instantiates the stages
// for the configured element types. All configuration errors surface here.
func New(opts Options, inputs Inputs, log logrus.FieldLogger) (*Pipeline, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if inputs.Gray == nil {
		return nil, bitmap.Configf("gray code pattern input is not connected")
	}
	if inputs.Shift == nil {
		return nil, bitmap.Configf("phase shift input is not connected")
	}

	tcfg := threshold.Config{
		Bright:          inputs.Bright != nil,
		Dark:            inputs.Dark != nil,
		Cos:             inputs.Cos != nil,
		DarkEnvironment: opts.DarkEnvironment,
		Workers:         opts.Workers,
	}
	mode, err := threshold.SelectMode(tcfg)
	if err != nil {
		return nil, err
	}

	eng, err := newEngine(opts, tcfg)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"threshold": mode.String(),
		"intensity": opts.Intensity.String(),
		"index":     opts.Index.String(),
		"phase":     opts.Phase.String(),
		"steps":     opts.PhaseShift.Steps,
		"rotate":    opts.PhaseShift.Rotate,
		"reverse":   opts.PhaseShift.Reverse,
		"workers":   bitmap.Workers(opts.Workers),
	}).Info("Pipeline configured")

	return &Pipeline{opts: opts, inputs: inputs, mode: mode, engine: eng, log: log}, nil
}

// Mode returns the threshold mode selected from the connected inputs.
func (p *Pipeline) Mode() threshold.Mode {
	return p.mode
}

// RunCycle fetches, decodes and emits one exec cycle. On error nothing is
// emitted for the cycle; whether to continue with the next cycle is up to
// the caller.
func (p *Pipeline) RunCycle(id correlate.ID, sink Sink) (*Result, error) {
	res, err := p.Exec(id)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		if err := res.emit(sink); err != nil {
			return nil, errors.Wrapf(err, "cycle %q: emitting results", id)
		}
	}
	return res, nil
}

// Exec decodes one exec cycle without emitting anything.
func (p *Pipeline) Exec(id correlate.ID) (*Result, error) {
	log := p.log.WithField("cycle", string(id))
	start := time.Now()

	thresholdStreams, err := p.thresholdStreams(id)
	if err != nil {
		return nil, err
	}
	shift, err := p.fetch(id, StreamShift, p.inputs.Shift)
	if err != nil {
		return nil, err
	}
	gray, err := p.fetch(id, StreamGray, p.inputs.Gray)
	if err != nil {
		return nil, err
	}

	res := &Result{ID: id}

	// Threshold estimation and demodulation do not depend on each other
	var wg sync.WaitGroup
	var thresholdErr, shiftErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		t0 := time.Now()
		res.Threshold, thresholdErr = p.engine.threshold(thresholdStreams)
		p.logStage(log, "threshold", t0, res.Threshold)
	}()
	go func() {
		defer wg.Done()
		t0 := time.Now()
		res.Phase, res.Modulation, shiftErr = p.engine.demodulate(shift)
		p.logStage(log, "phase shift", t0, res.Phase)
	}()
	wg.Wait()
	if thresholdErr != nil {
		return nil, thresholdErr
	}
	if shiftErr != nil {
		return nil, shiftErr
	}

	t0 := time.Now()
	thresholds := correlate.Stream{Name: StreamThreshold, Kind: p.opts.Intensity, Records: res.Threshold}
	if res.Index, err = p.engine.decode(thresholds, gray); err != nil {
		return nil, err
	}
	p.logStage(log, "gray code", t0, res.Index)

	t0 = time.Now()
	phases := correlate.Stream{Name: StreamPhase, Kind: p.opts.Phase, Records: res.Phase}
	indices := correlate.Stream{Name: StreamIndex, Kind: p.opts.Index, Records: res.Index}
	if res.Absolute, err = p.engine.unwrap(phases, indices); err != nil {
		return nil, err
	}
	p.logStage(log, "unwrap", t0, res.Absolute)

	res.Quality = p.engine.summarize(res.Modulation, p.opts.MinModulation)
	if p.opts.EmitMask {
		res.Mask = p.engine.mask(res.Modulation, p.opts.MinModulation)
	}
	for i, s := range res.Quality {
		log.WithFields(logrus.Fields{
			"record":         i,
			"modulation":     s.Mean,
			"modulation_std": s.StdDev,
			"valid_fraction": s.ValidFraction,
		}).Info("Modulation summary")
	}

	log.WithFields(logrus.Fields{
		"records": len(res.Absolute),
		"elapsed": time.Since(start).String(),
	}).Debug("Cycle decoded")
	return res, nil
}

func (p *Pipeline) thresholdStreams(id correlate.ID) ([]correlate.Stream, error) {
	var names []string
	var sources []Source
	switch p.mode {
	case threshold.BrightOnly:
		names, sources = []string{StreamBright}, []Source{p.inputs.Bright}
	case threshold.BrightDark:
		names, sources = []string{StreamBright, StreamDark}, []Source{p.inputs.Bright, p.inputs.Dark}
	case threshold.CosAverage:
		names, sources = []string{StreamCos}, []Source{p.inputs.Cos}
	}

	streams := make([]correlate.Stream, len(sources))
	for i, src := range sources {
		s, err := p.fetch(id, names[i], src)
		if err != nil {
			return nil, err
		}
		streams[i] = s
	}
	return streams, nil
}

func (p *Pipeline) fetch(id correlate.ID, name string, src Source) (correlate.Stream, error) {
	recs, err := src.Fetch(id)
	if err != nil {
		return correlate.Stream{}, errors.Wrapf(err, "cycle %q: fetching %s", id, name)
	}
	return correlate.Stream{Name: name, Kind: p.opts.Intensity, Records: recs}, nil
}

func (p *Pipeline) logStage(log logrus.FieldLogger, stage string, start time.Time, out []correlate.Record) {
	fields := logrus.Fields{
		"stage":   stage,
		"records": len(out),
		"elapsed": time.Since(start).String(),
	}
	if len(out) > 0 {
		if size, ok := sizeOf(out[0].Value); ok {
			fields["width"] = size.Width
			fields["height"] = size.Height
		}
	}
	log.WithFields(fields).Debug("Stage complete")
}

func (r *Result) emit(sink Sink) error {
	groups := []struct {
		name string
		recs []correlate.Record
	}{
		{StreamThreshold, r.Threshold},
		{StreamPhase, r.Phase},
		{StreamModulation, r.Modulation},
		{StreamIndex, r.Index},
		{StreamAbsolute, r.Absolute},
		{StreamMask, r.Mask},
	}
	for _, g := range groups {
		for _, rec := range g.recs {
			if err := sink.Emit(g.name, rec); err != nil {
				return errors.Wrapf(err, "stream %s", g.name)
			}
		}
	}
	return nil
}

// cycleError labels a stage failure with its cycle and stage while keeping
// the error class intact for errors.Is.
func cycleError(err error, id correlate.ID, stage string) error {
	return errors.Wrapf(err, "cycle %q: %s", id, stage)
}

// sizeOf reports the size of any bitmap value.
func sizeOf(v any) (bitmap.Size, bool) {
	switch b := v.(type) {
	case *bitmap.Bitmap[uint8]:
		return b.Size(), true
	case *bitmap.Bitmap[uint16]:
		return b.Size(), true
	case *bitmap.Bitmap[uint32]:
		return b.Size(), true
	case *bitmap.Bitmap[float32]:
		return b.Size(), true
	case *bitmap.Bitmap[float64]:
		return b.Size(), true
	}
	return bitmap.Size{}, false
}
