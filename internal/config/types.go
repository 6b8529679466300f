package config

import (
	"path/filepath"

	"github.com/lucasnoah/augment/internal/augment"
)

// PipelineConfig is the top-level configuration structure parsed from a
// pipeline YAML or TOML file.
type PipelineConfig struct {
	Pipeline Pipeline `yaml:"pipeline" toml:"pipeline"`
}

// Pipeline defines where images come from, where samples go, how many to
// draw, and the ordered operations applied to each sample.
type Pipeline struct {
	Source     string         `yaml:"source" toml:"source"`
	Output     string         `yaml:"output,omitempty" toml:"output"`
	Samples    int            `yaml:"samples" toml:"samples"`
	Seed       int64          `yaml:"seed,omitempty" toml:"seed"`
	Workers    int            `yaml:"workers,omitempty" toml:"workers"`
	Format     string         `yaml:"format,omitempty" toml:"format"`
	Operations []augment.Spec `yaml:"operations" toml:"operations"`
}

// OutputDir resolves the output directory. A relative output is taken
// relative to the source directory; an empty one defaults to
// <source>/output.
func (p *Pipeline) OutputDir() string {
	out := p.Output
	if out == "" {
		out = DefaultOutput
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(p.Source, out)
}
