// Package config provides configuration loading and management for
// retinamap. It handles loading configuration from YAML files, provides
// default values, and converts a loaded configuration into pipeline
// construction parameters.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"retinamap/internal/models"
	"retinamap/pkg/flatmount"
	"retinamap/pkg/interpolation"
	"retinamap/pkg/projection"
	"retinamap/pkg/retina"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Input locates the flatmount coordinate tables.
	Input struct {
		// Samples is the CSV of (x, y, count) measurements.
		Samples string `yaml:"samples"`

		// Outline is the CSV of ordered (x, y) landmark points.
		Outline string `yaml:"outline"`
	} `yaml:"input"`

	// Frame is the counting frame; height and width must be equal.
	Frame struct {
		Height float64 `yaml:"height"`
		Width  float64 `yaml:"width"`
	} `yaml:"frame"`

	// Eye is the physical geometry of the source eye, in mm.
	Eye struct {
		LensDiameter float64 `yaml:"lensDiameter"`
		EyeDiameter  float64 `yaml:"eyeDiameter"`
		AxialLength  float64 `yaml:"axialLength"`
	} `yaml:"eye"`

	// Fit controls the thin-plate-spline surface.
	Fit struct {
		// Lambda is the smoothing parameter, >= 0.
		Lambda float64 `yaml:"lambda"`

		// GridResolution is the output grid size per axis.
		GridResolution int `yaml:"gridResolution"`

		// MaxRadius is the grid half-extent as a multiple of the unit
		// hemisphere radius.
		MaxRadius float64 `yaml:"maxRadius"`

		// Extrapolate evaluates the surface outside the sample hull.
		Extrapolate bool `yaml:"extrapolate"`

		// Metric is "in-sample" or "cross-validated".
		Metric string `yaml:"metric"`
	} `yaml:"fit"`

	// Projection orients the azimuthal-equidistant map, in degrees.
	Projection struct {
		PoleLatDegrees  float64 `yaml:"poleLatDegrees"`
		PoleLonDegrees  float64 `yaml:"poleLonDegrees"`
		RotationDegrees float64 `yaml:"rotationDegrees"`
	} `yaml:"projection"`

	// Calibration is the optional pixel-to-physical transform. Absent
	// means the inputs are already normalized.
	Calibration *struct {
		MaxX   float64 `yaml:"maxX"`
		MaxY   float64 `yaml:"maxY"`
		MinX   float64 `yaml:"minX"`
		MinY   float64 `yaml:"minY"`
		DeltaX float64 `yaml:"deltaX"`
		DeltaY float64 `yaml:"deltaY"`
	} `yaml:"calibration"`

	// Output controls artifacts and logging.
	Output struct {
		// RenderPath, when set, writes a density map PNG after the build.
		RenderPath string `yaml:"renderPath"`

		// Verbose enables staged progress logging.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Frame.Height = 25
	cfg.Frame.Width = 25

	cfg.Fit.Lambda = 0
	cfg.Fit.GridResolution = 101
	cfg.Fit.MaxRadius = interpolation.DefaultMaxRadius
	cfg.Fit.Extrapolate = false
	cfg.Fit.Metric = "in-sample"

	cfg.Projection.PoleLatDegrees = 90

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
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

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
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

// Params converts the configuration into pipeline construction parameters.
func (cfg *Config) Params() (retina.Params, error) {
	var metric interpolation.Metric
	switch cfg.Fit.Metric {
	case "", "in-sample":
		metric = interpolation.MetricInSample
	case "cross-validated":
		metric = interpolation.MetricCrossValidated
	default:
		return retina.Params{}, fmt.Errorf("unknown fit metric %q", cfg.Fit.Metric)
	}

	var cal flatmount.Calibration = flatmount.Uncalibrated{}
	if cfg.Calibration != nil {
		cal = flatmount.Calibrated{
			MaxX:   cfg.Calibration.MaxX,
			MaxY:   cfg.Calibration.MaxY,
			MinX:   cfg.Calibration.MinX,
			MinY:   cfg.Calibration.MinY,
			DeltaX: cfg.Calibration.DeltaX,
			DeltaY: cfg.Calibration.DeltaY,
		}
	}

	const degToRad = math.Pi / 180
	return retina.Params{
		SamplePath:  cfg.Input.Samples,
		OutlinePath: cfg.Input.Outline,
		Frame:       flatmount.Frame{Height: cfg.Frame.Height, Width: cfg.Frame.Width},
		Calibration: cal,
		Eye: models.EyeGeometry{
			LensDiameter: cfg.Eye.LensDiameter,
			EyeDiameter:  cfg.Eye.EyeDiameter,
			AxialLength:  cfg.Eye.AxialLength,
		},
		Lambda:      cfg.Fit.Lambda,
		GridRes:     cfg.Fit.GridResolution,
		MaxRadius:   cfg.Fit.MaxRadius,
		Extrapolate: cfg.Fit.Extrapolate,
		Orientation: projection.Orientation{
			PoleLat:  cfg.Projection.PoleLatDegrees * degToRad,
			PoleLon:  cfg.Projection.PoleLonDegrees * degToRad,
			Rotation: cfg.Projection.RotationDegrees * degToRad,
		},
		Metric:  metric,
		Verbose: cfg.Output.Verbose,
	}, nil
}
