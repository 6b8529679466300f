package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/augment/internal/augment"
)

const (
	// DefaultSource is the dataset directory used when neither the config
	// nor the command line name one.
	DefaultSource = "dataset"
	// DefaultOutput is the output directory, relative to the source.
	DefaultOutput = "output"
	// DefaultSamples is the number of images sampled per run.
	DefaultSamples = 100
)

// Default returns the built-in pipeline: zoom, vertical flip, brightness
// jitter, two distortions and two shears, sampling 100 images.
func Default() *PipelineConfig {
	return &PipelineConfig{Pipeline: Pipeline{
		Source:  DefaultSource,
		Samples: DefaultSamples,
		Workers: 1,
		Operations: []augment.Spec{
			{Type: "zoom", Probability: 0.9, Params: augment.Params{"min_factor": 0.8, "max_factor": 1.5}},
			{Type: "flip_top_bottom", Probability: 0.2},
			{Type: "random_brightness", Probability: 0.3, Params: augment.Params{"min_factor": 0.3, "max_factor": 1.2}},
			{Type: "random_distortion", Probability: 1, Params: augment.Params{"grid_width": 4, "grid_height": 4, "magnitude": 50}},
			{Type: "gaussian_distortion", Probability: 1, Params: augment.Params{
				"grid_width": 2, "grid_height": 10, "magnitude": 10, "corner": "ur", "method": "in",
				"mex": 0.5, "mey": 0.5, "sdx": 0.65, "sdy": 0.05,
			}},
			{Type: "shear", Probability: 1, Params: augment.Params{"max_shear_left": 10, "max_shear_right": 20}},
			{Type: "shear", Probability: 1, Params: augment.Params{"max_shear_left": 25, "max_shear_right": 10}},
		},
	}}
}

// Load reads and parses a pipeline configuration from the given file path.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// After parsing, it applies defaults for fields the file leaves unset.
func Load(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Unset numeric fields keep these values; yaml and toml only overwrite
	// keys present in the file.
	cfg := PipelineConfig{Pipeline: Pipeline{Samples: DefaultSamples, Workers: 1}}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config TOML: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a pipeline config in standard locations and loads
// the first one found. Search order: ./augment.yaml, ./augment.toml,
// ~/.augment/config.yaml. Without any of them it returns Default().
func LoadDefault() (*PipelineConfig, error) {
	candidates := []string{"augment.yaml", "augment.toml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".augment", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// applyDefaults fills fields a config file leaves unset. A file that lists
// no operations gets the built-in sequence.
func applyDefaults(cfg *PipelineConfig) {
	p := &cfg.Pipeline
	if p.Source == "" {
		p.Source = DefaultSource
	}
	if p.Operations == nil {
		p.Operations = Default().Pipeline.Operations
	}
}
