// Package config provides configuration loading and management for
// ultraflow. It handles loading configuration from YAML files and
// provides default values matching the original analysis setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Probe parameters
	Probe struct {
		// LengthMm is the physical length of the transducer array in mm.
		// The classic AAA tongue-imaging setup uses a 40 mm probe, but
		// the value depends on the hardware.
		LengthMm float64 `yaml:"lengthMm"`
	} `yaml:"probe"`

	// Registration parameters for the diffeomorphic demons solver
	Registration struct {
		// LevelIters is the iteration count per multiresolution pyramid
		// level, coarsest level first
		LevelIters []int `yaml:"levelIters"`

		// SigmaDiff is the Gaussian smoothing applied to each demons
		// update field
		SigmaDiff float64 `yaml:"sigmaDiff"`

		// Radius caps the per-iteration displacement step in pixels
		Radius int `yaml:"radius"`

		// InvIter is the number of fixed-point iterations used to refine
		// the backward displacement field
		InvIter int `yaml:"invIter"`
	} `yaml:"registration"`

	// Processing parameters
	Processing struct {
		// MaxFramePairs limits how many consecutive frame pairs are
		// registered per session; 0 registers every pair. Useful for
		// quick passes over long recordings.
		MaxFramePairs int `yaml:"maxFramePairs"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// ExportFrames saves each resampled frame as a grayscale PNG
		ExportFrames bool `yaml:"exportFrames"`

		// ExportFlow saves each displacement field's magnitude as a PNG
		ExportFlow bool `yaml:"exportFlow"`

		// ExportDir is the directory PNG exports are written to
		ExportDir string `yaml:"exportDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Probe.LengthMm = 40.0

	// Registration defaults mirror the original analysis parameters.
	cfg.Registration.LevelIters = []int{200, 100, 50, 25}
	cfg.Registration.SigmaDiff = 3.0
	cfg.Registration.Radius = 2
	cfg.Registration.InvIter = 100

	cfg.Processing.MaxFramePairs = 0

	cfg.Output.Verbose = true
	cfg.Output.ExportFrames = false
	cfg.Output.ExportFlow = false
	cfg.Output.ExportDir = "flow_exports"

	return cfg
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
