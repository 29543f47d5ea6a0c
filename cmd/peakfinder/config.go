package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/twpayne/go-peakfinder"
)

var formats = []string{"table", "csv", "json", "geojson"}

// A Config is the peakfinder configuration. Zero thresholds are replaced by
// the preset's, if any.
type Config struct {
	EUDEMPath       string    `yaml:"euDEMPath"`
	BBox            []float64 `yaml:"bbox"`
	Preset          string    `yaml:"preset"`
	WindowSize      int       `yaml:"windowSize"`
	Prominence      float64   `yaml:"prominence"`
	Dominance       float64   `yaml:"dominance"`
	DominancePixels float64   `yaml:"dominancePixels"`
	ImageScale      float64   `yaml:"imageScale"`
	TileCacheSize   string    `yaml:"tileCacheSize"`
	Concurrency     int       `yaml:"concurrency"`
	Format          string    `yaml:"format"`
	Limit           int       `yaml:"limit"`
	Verbose         bool      `yaml:"verbose"`
}

func defaultConfig() *Config {
	return &Config{
		WindowSize:    peakfinder.DefaultWindowSize,
		ImageScale:    1,
		TileCacheSize: "128MB",
	}
}

// LoadConfig loads the configuration from a YAML file. Missing values keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return config, nil
}

// Validate returns an error if c is invalid.
func (c *Config) Validate() error {
	if c.Format != "" && !slices.Contains(formats, c.Format) {
		return fmt.Errorf("format: %s: must be one of %v", c.Format, formats)
	}
	if len(c.BBox) != 0 && len(c.BBox) != 4 {
		return fmt.Errorf("bbox: must have four values, got %d", len(c.BBox))
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit: %d: must not be negative", c.Limit)
	}
	if c.ImageScale <= 0 {
		return fmt.Errorf("imageScale: %g: must be positive", c.ImageScale)
	}
	if c.DominancePixels < 0 {
		return fmt.Errorf("dominancePixels: %g: must not be negative", c.DominancePixels)
	}
	if _, err := c.tileCacheSizeBytes(); err != nil {
		return err
	}
	if c.Preset != "" {
		if _, err := peakfinder.LookupPreset(c.Preset); err != nil {
			return err
		}
	}
	return nil
}

// Thresholds returns the prominence and dominance thresholds in metres.
func (c *Config) Thresholds() (prominence, dominance float64, err error) {
	prominence, dominance = c.Prominence, c.Dominance
	if c.Preset == "" {
		return prominence, dominance, nil
	}
	preset, err := peakfinder.LookupPreset(c.Preset)
	if err != nil {
		return 0, 0, err
	}
	if prominence == 0 {
		prominence = preset.Prominence
	}
	if dominance == 0 {
		dominance = preset.DominanceMetres
	}
	return prominence, dominance, nil
}

func (c *Config) tileCacheSizeBytes() (int, error) {
	bytes, err := humanize.ParseBytes(c.TileCacheSize)
	if err != nil {
		return 0, fmt.Errorf("tileCacheSize: %w", err)
	}
	return int(bytes), nil
}
