package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/kuzushiji-dataset/pkg/annotations"
	"github.com/menta2k/kuzushiji-dataset/pkg/overlay"
	"github.com/menta2k/kuzushiji-dataset/pkg/processing"
	"github.com/menta2k/kuzushiji-dataset/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Paths   PathsConfig    `json:"paths"`
	Dataset DatasetConfig  `json:"dataset"`
	Jitter  JitterConfig   `json:"jitter"`
	Overlay overlay.Config `json:"overlay"`
	Output  OutputConfig   `json:"output"`
}

// PathsConfig locates the catalog and annotation tables
type PathsConfig struct {
	Catalog     string             `json:"catalog"`
	Annotations annotations.Config `json:"annotations"`
}

// DatasetConfig holds configuration for sample generation
type DatasetConfig struct {
	MaxSize   int        `json:"max_size"`
	CropSize  types.Size `json:"crop_size"`
	Threshold float64    `json:"threshold"`
	Filter    string     `json:"filter"` // lanczos, catmullrom, linear, box or nearest
	Seed      uint64     `json:"seed"`   // 0 draws a random seed
	LogCrops  bool       `json:"log_crops"`
}

// JitterConfig holds the colour jitter spreads applied after cropping
type JitterConfig struct {
	Enabled    bool    `json:"enabled"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
	Lossless bool   `json:"lossless"`
	Dir      string `json:"dir"`
	Prefix   string `json:"prefix"`
	Suffix   string `json:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Catalog:     "unicode_translation.csv",
			Annotations: annotations.DefaultConfig(),
		},
		Dataset: DatasetConfig{
			MaxSize:   2048,
			CropSize:  types.Square(1024),
			Threshold: 0.5,
			Filter:    "lanczos",
		},
		Jitter: JitterConfig{
			Enabled:    true,
			Brightness: 0.3,
			Contrast:   0.5,
			Saturation: 0.5,
			Hue:        0.1,
		},
		Overlay: overlay.DefaultConfig(),
		Output: OutputConfig{
			Format:  "png",
			Quality: 92,
			Dir:     "./preview",
			Suffix:  "_preview",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Paths.Catalog == "" {
		return fmt.Errorf("paths.catalog cannot be empty")
	}

	if c.Paths.Annotations.TrainCSV == "" || c.Paths.Annotations.TestCSV == "" {
		return fmt.Errorf("paths.annotations train_csv and test_csv cannot be empty")
	}

	if c.Dataset.MaxSize < 0 {
		return fmt.Errorf("dataset.max_size must not be negative")
	}

	if c.Dataset.CropSize.W <= 0 || c.Dataset.CropSize.H <= 0 {
		return fmt.Errorf("dataset.crop_size must be positive")
	}

	if c.Dataset.MaxSize > 0 && max(c.Dataset.CropSize.W, c.Dataset.CropSize.H) > c.Dataset.MaxSize {
		return fmt.Errorf("dataset.crop_size %v does not fit inside max_size %d", c.Dataset.CropSize, c.Dataset.MaxSize)
	}

	if c.Dataset.Threshold < 0 || c.Dataset.Threshold > 1 {
		return fmt.Errorf("dataset.threshold must be between 0 and 1")
	}

	if _, err := processing.ParseFilter(c.Dataset.Filter); err != nil {
		return fmt.Errorf("dataset.filter: %w", err)
	}

	for name, v := range map[string]float64{
		"brightness": c.Jitter.Brightness,
		"contrast":   c.Jitter.Contrast,
		"saturation": c.Jitter.Saturation,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("jitter.%s must be between 0 and 1", name)
		}
	}

	if c.Jitter.Hue < 0 || c.Jitter.Hue > 0.5 {
		return fmt.Errorf("jitter.hue must be between 0 and 0.5")
	}

	if c.Overlay.Mode != "" && c.Overlay.Mode != overlay.ModePixels {
		return fmt.Errorf("overlay.mode %q is not supported", c.Overlay.Mode)
	}

	switch strings.ToLower(c.Output.Format) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.format must be png, jpg or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "kuzushiji-dataset", "config.json")
}
