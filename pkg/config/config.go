// Package config provides configuration loading and management for slphase.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"slphase/pkg/bitmap"
	"slphase/pkg/phaseshift"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many goroutines split each bitmap
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Element types, fixed once before the first cycle
	Types struct {
		// Intensity is the element type of captured images
		Intensity string `yaml:"intensity"`

		// Index is the element type of the coarse index map
		Index string `yaml:"index"`

		// Phase is the element type of wrapped and absolute phase maps
		Phase string `yaml:"phase"`
	} `yaml:"types"`

	// Threshold estimation parameters
	Threshold struct {
		// DarkEnvironment allows a bright-only threshold
		DarkEnvironment bool `yaml:"darkEnvironment"`

		// CosAverage derives the threshold from the phase-shift images
		// instead of bright/dark references
		CosAverage bool `yaml:"cosAverage"`
	} `yaml:"threshold"`

	// Phase shift decoding parameters
	PhaseShift struct {
		// Steps is the number of phase-shifted images per period (4, 6, 8 or 16)
		Steps int `yaml:"steps"`

		// Rotate moves image Rotate to the front before decoding
		Rotate int `yaml:"rotate"`

		// Reverse flips the image order after rotation
		Reverse bool `yaml:"reverse"`
	} `yaml:"phaseShift"`

	// Quality gating parameters
	Quality struct {
		// MinModulation marks pixels below this modulation as invalid
		MinModulation float64 `yaml:"minModulation"`
	} `yaml:"quality"`

	// Output parameters
	Output struct {
		// Format selects the image container for written maps: png or tiff
		Format string `yaml:"format"`

		// SaveIntermediary writes threshold, index, wrapped phase and modulation
		// maps next to the absolute phase
		SaveIntermediary bool `yaml:"saveIntermediary"`

		// SaveMask writes the modulation quality mask
		SaveMask bool `yaml:"saveMask"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()

	cfg.Types.Intensity = "uint8"
	cfg.Types.Index = "uint16"
	cfg.Types.Phase = "float32"

	cfg.Threshold.DarkEnvironment = false
	cfg.Threshold.CosAverage = false

	cfg.PhaseShift.Steps = 4
	cfg.PhaseShift.Rotate = 0
	cfg.PhaseShift.Reverse = false

	cfg.Quality.MinModulation = 10

	cfg.Output.Format = "png"
	cfg.Output.SaveIntermediary = false
	cfg.Output.SaveMask = true
	cfg.Output.Verbose = false

	return cfg
}

// Kinds resolves the configured element type names.
func (c *Config) Kinds() (intensity, index, phase bitmap.Kind, err error) {
	if intensity, err = bitmap.ParseKind(c.Types.Intensity); err != nil {
		return
	}
	if index, err = bitmap.ParseKind(c.Types.Index); err != nil {
		return
	}
	if !index.IsIndex() {
		err = bitmap.Configf("index type %s is not an unsigned integer type", index)
		return
	}
	if phase, err = bitmap.ParseKind(c.Types.Phase); err != nil {
		return
	}
	if !phase.IsPhase() {
		err = bitmap.Configf("phase type %s is not a floating point type", phase)
	}
	return
}

// PhaseShiftConfig returns the demodulator settings.
func (c *Config) PhaseShiftConfig() phaseshift.Config {
	return phaseshift.Config{
		Steps:   c.PhaseShift.Steps,
		Rotate:  c.PhaseShift.Rotate,
		Reverse: c.PhaseShift.Reverse,
		Workers: c.Processing.NumCores,
	}
}

// Validate checks every setting that can be checked without inputs.
func (c *Config) Validate() error {
	if _, _, _, err := c.Kinds(); err != nil {
		return err
	}
	if err := c.PhaseShiftConfig().Validate(); err != nil {
		return err
	}
	if c.Quality.MinModulation < 0 {
		return bitmap.Configf("minModulation must not be negative, got %g", c.Quality.MinModulation)
	}
	switch c.Output.Format {
	case "png", "tiff":
	default:
		return bitmap.Configf("output format %q not supported (png, tiff)", c.Output.Format)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
