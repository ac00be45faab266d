package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"slphase/internal/models"
	"slphase/pkg/bitmap"
	"slphase/pkg/config"
	"slphase/pkg/imageio"
	"slphase/pkg/pipeline"
	"slphase/pkg/visualization"
)

func main() {
	configPath := flag.String("config", "slphase.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	inputDir := flag.String("input", "", "Scan directory containing gray_<axis> and shift_<axis> image folders")
	brightPath := flag.String("bright", "", "Fully lit reference image")
	darkPath := flag.String("dark", "", "Unlit reference image")
	axesFlag := flag.String("axis", "x", "Comma separated pattern axes to decode (x, y)")
	outputDir := flag.String("output", "output", "Directory for rendered maps")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *configPath, err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(*debug || cfg.Output.Verbose)

	axes, ok := models.ParseAxes(*axesFlag)
	if !ok {
		logger.WithField("axis", *axesFlag).Fatal("Invalid axis list")
	}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	renderer, err := visualization.NewRenderer(*outputDir, cfg.Output.Format)
	if err != nil {
		logger.WithError(err).Fatal("Invalid output settings")
	}
	renderer.Streams = outputStreams(cfg)

	start := time.Now()
	for _, axis := range axes {
		files := scanFiles{
			Bright: *brightPath,
			Dark:   *darkPath,
			Gray:   filepath.Join(*inputDir, "gray_"+string(axis)),
			Shift:  filepath.Join(*inputDir, "shift_"+string(axis)),
		}
		if err := decodeAxis(logger, axis, files, cfg, opts, renderer); err != nil {
			logger.WithError(err).WithField("axis", axis).Fatal("Decoding failed")
		}
	}

	logger.WithFields(logrus.Fields{
		"axes":    len(axes),
		"output":  *outputDir,
		"elapsed": time.Since(start).String(),
	}).Info("Decoding complete")
}

// initLogger sets up logrus: colored text for debugging, JSON otherwise
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

func outputStreams(cfg *config.Config) []string {
	streams := []string{pipeline.StreamAbsolute}
	if cfg.Output.SaveMask {
		streams = append(streams, pipeline.StreamMask)
	}
	if cfg.Output.SaveIntermediary {
		streams = append(streams,
			pipeline.StreamThreshold,
			pipeline.StreamIndex,
			pipeline.StreamPhase,
			pipeline.StreamModulation,
		)
	}
	return streams
}

// decodeAxis loads one pattern axis and runs it as a single exec cycle
func decodeAxis(logger *logrus.Logger, axis models.Axis, files scanFiles, cfg *config.Config, opts pipeline.Options, renderer *visualization.Renderer) error {
	log := logger.WithField("axis", string(axis))

	data, err := load(opts.Intensity, files)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"gray":  len(data.GrayFrames),
		"shift": len(data.ShiftFrames),
	}).Info("Frames loaded")
	for _, f := range data.ShiftFrames {
		log.WithFields(logrus.Fields{"file": f.Filename, "number": f.Number}).Debug("Phase shift frame")
	}

	id := pipeline.NewCycleID()
	inputs := pipeline.Inputs{
		Gray:  pipeline.NewMemorySource().Add(id, data.Gray),
		Shift: pipeline.NewMemorySource().Add(id, data.Shift),
	}
	if cfg.Threshold.CosAverage {
		inputs.Cos = pipeline.NewMemorySource().Add(id, data.Shift)
	} else {
		if data.Bright != nil {
			inputs.Bright = pipeline.NewMemorySource().Add(id, data.Bright)
		}
		if data.Dark != nil {
			inputs.Dark = pipeline.NewMemorySource().Add(id, data.Dark)
		}
	}

	p, err := pipeline.New(opts, inputs, log)
	if err != nil {
		return err
	}

	axisRenderer := *renderer
	axisRenderer.Prefix = string(axis) + "_"
	res, err := p.RunCycle(id, &axisRenderer)
	if err != nil {
		return err
	}

	for _, s := range res.Quality {
		log.WithFields(logrus.Fields{
			"median_modulation": s.Median,
			"min_modulation":    s.Min,
			"max_modulation":    s.Max,
			"valid_fraction":    s.ValidFraction,
		}).Info("Axis decoded")
	}
	return nil
}

// scanFiles names the inputs of one axis; empty reference paths are not connected
type scanFiles struct {
	Bright, Dark string
	Gray, Shift  string
}

// scanData holds loaded inputs as pipeline record values
type scanData struct {
	Bright, Dark any
	Gray, Shift  any

	GrayFrames, ShiftFrames []models.Frame
}

func load(kind bitmap.Kind, files scanFiles) (scanData, error) {
	switch kind {
	case bitmap.Uint8:
		return loadAs[uint8](files)
	case bitmap.Uint16:
		return loadAs[uint16](files)
	case bitmap.Uint32:
		return loadAs[uint32](files)
	case bitmap.Float32:
		return loadAs[float32](files)
	case bitmap.Float64:
		return loadAs[float64](files)
	}
	return scanData{}, bitmap.Configf("unsupported intensity type %s", kind)
}

func loadAs[T bitmap.Intensity](files scanFiles) (scanData, error) {
	var data scanData

	gray, grayFrames, err := imageio.LoadSequence[T](files.Gray)
	if err != nil {
		return data, err
	}
	shift, shiftFrames, err := imageio.LoadSequence[T](files.Shift)
	if err != nil {
		return data, err
	}
	data.Gray, data.GrayFrames = gray, grayFrames
	data.Shift, data.ShiftFrames = shift, shiftFrames

	if files.Bright != "" {
		b, err := imageio.LoadBitmap[T](files.Bright)
		if err != nil {
			return data, err
		}
		data.Bright = b
	}
	if files.Dark != "" {
		d, err := imageio.LoadBitmap[T](files.Dark)
		if err != nil {
			return data, err
		}
		data.Dark = d
	}
	return data, nil
}
