// Package config provides configuration loading and management for dicomvolume.
// It handles loading configuration from YAML files, applies environment
// overrides and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dicomvolume/pkg/visualization"
)

// Render modes
const (
	ModeOrthogonal = "orthogonal"
	ModeVolumetric = "volumetric"
	ModeBoth       = "both"
)

// Environment variables read by ApplyEnv
const (
	EnvInputDir   = "DICOMVOLUME_INPUT_DIR"
	EnvRenderMode = "DICOMVOLUME_RENDER_MODE"
	EnvOutputDir  = "DICOMVOLUME_OUTPUT_DIR"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Dir is the directory holding the DICOM series, resolved
		// against the current working directory when relative
		Dir string `yaml:"dir"`
	} `yaml:"input"`

	// Render parameters
	Render struct {
		// Mode selects the renderer: orthogonal, volumetric or both
		Mode string `yaml:"mode"`

		// OutputDir is where rendered figures are written
		OutputDir string `yaml:"outputDir"`

		// CellSize is the edge length in pixels of one figure cell
		CellSize int `yaml:"cellSize"`

		// ProjectionAxis is the axis the volumetric projection looks
		// along: axial, sagittal, coronal or the z, x, y shorthand
		ProjectionAxis string `yaml:"projectionAxis"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// Verbose controls per-file progress output
		Verbose bool `yaml:"verbose"`

		// ExtractSlices saves every slice along all three axes
		ExtractSlices bool `yaml:"extractSlices"`

		// SlicesDir is the directory extracted slices go to
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`

	// Validation parameters
	Validation struct {
		// Tolerance is the largest allowed difference in pixel spacing
		// or slice thickness between slices of one series
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"validation"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.Dir = "series-000001"

	cfg.Render.Mode = ModeOrthogonal
	cfg.Render.OutputDir = "output"
	cfg.Render.CellSize = 500
	cfg.Render.ProjectionAxis = "coronal"

	cfg.Output.Verbose = true
	cfg.Output.ExtractSlices = false
	cfg.Output.SlicesDir = "slices"

	cfg.Validation.Tolerance = 1e-3

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides configuration values with the DICOMVOLUME_*
// environment variables that are set
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvInputDir); v != "" {
		c.Input.Dir = v
	}
	if v := os.Getenv(EnvRenderMode); v != "" {
		c.Render.Mode = strings.ToLower(v)
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Render.OutputDir = v
	}
	return c.Validate()
}

// Validate checks field values
func (c *Config) Validate() error {
	switch c.Render.Mode {
	case ModeOrthogonal, ModeVolumetric, ModeBoth:
	default:
		return fmt.Errorf("invalid render mode %q (must be %s, %s or %s)",
			c.Render.Mode, ModeOrthogonal, ModeVolumetric, ModeBoth)
	}

	if _, err := visualization.ParseAxis(c.Render.ProjectionAxis); err != nil {
		return fmt.Errorf("invalid projection axis: %w", err)
	}

	if c.Render.CellSize <= 0 {
		return fmt.Errorf("cell size must be positive, got %d", c.Render.CellSize)
	}
	if c.Validation.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %g", c.Validation.Tolerance)
	}
	if c.Input.Dir == "" {
		return fmt.Errorf("input directory must be set")
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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
