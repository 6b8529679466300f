package pipeline

import (
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/lucasnoah/augment/internal/augment"
)

// Engine decodes, transforms and encodes images. augment.ImagingEngine is
// the production implementation.
type Engine interface {
	Open(path string) (image.Image, error)
	Apply(img image.Image, op augment.Operation, rng *rand.Rand) (image.Image, error)
	Encode(w io.Writer, img image.Image, format string) error
}

// Recorder persists run and sample records. db.DB implements it.
type Recorder interface {
	StartRun(info RunInfo) error
	RecordSample(runID string, s SampleRecord) error
	FinishRun(result *RunResult) error
}

// State is the lifecycle state of a Pipeline.
type State int

const (
	// Configured pipelines have not been run yet.
	Configured State = iota
	// Executed pipelines have completed at least one Run.
	Executed
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Executed:
		return "executed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID         string
	Source     string
	Output     string
	Requested  int
	Seed       int64
	Workers    int
	Operations []string
	StartedAt  time.Time
}

// SampleRecord is the outcome of one sample.
type SampleRecord struct {
	Index   int
	Source  string
	Output  string   // empty when the sample failed
	Applied []string // operations that fired, in order
	Bytes   int64
	Err     string
}

// RunResult summarises a completed run. Written never exceeds Requested,
// and exactly Written files were created in Output.
type RunResult struct {
	RunID     string
	Source    string
	Output    string
	Seed      int64
	Requested int
	Written   int
	Failed    int
	Bytes     int64
	Outputs   []string
	Samples   []SampleRecord
	StartedAt time.Time
	Duration  time.Duration
}

// Pipeline samples images from a source directory, runs them through an
// ordered list of probabilistic operations and writes the results.
type Pipeline struct {
	source   string
	output   string
	engine   Engine
	ops      []augment.Operation
	seed     int64
	workers  int
	format   string
	state    State
	progress io.Writer // live progress output; nil = silent
	barOut   io.Writer // progress bar output; nil = no bar
	recorder Recorder
}

// New creates a pipeline reading from source and writing to output. An
// empty output defaults to <source>/output.
func New(source, output string, engine Engine) *Pipeline {
	if output == "" {
		output = filepath.Join(source, "output")
	}
	return &Pipeline{
		source:  source,
		output:  output,
		engine:  engine,
		workers: 1,
	}
}

// AddOperation validates spec and appends the resulting operation. An
// invalid spec leaves the pipeline unchanged and returns a
// *augment.ConfigurationError.
func (p *Pipeline) AddOperation(spec augment.Spec) error {
	op, err := augment.Build(spec)
	if err != nil {
		return err
	}
	p.ops = append(p.ops, op)
	return nil
}

// Operations returns the configured operations in application order.
func (p *Pipeline) Operations() []augment.Operation {
	return append([]augment.Operation(nil), p.ops...)
}

// Source returns the source directory.
func (p *Pipeline) Source() string { return p.source }

// Output returns the output directory.
func (p *Pipeline) Output() string { return p.output }

// State returns the pipeline's lifecycle state.
func (p *Pipeline) State() State { return p.state }

// SetSeed fixes the random seed. Zero picks a time-based seed per run.
func (p *Pipeline) SetSeed(seed int64) {
	p.seed = seed
}

// SetWorkers sets how many samples are processed concurrently.
func (p *Pipeline) SetWorkers(n int) {
	p.workers = max(1, n)
}

// SetFormat sets the output format. Empty keeps each source image's format.
func (p *Pipeline) SetFormat(format string) {
	p.format = format
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (p *Pipeline) SetProgress(w io.Writer) {
	p.progress = w
}

// SetProgressBar enables a progress bar drawn on w.
func (p *Pipeline) SetProgressBar(w io.Writer) {
	p.barOut = w
}

// SetRecorder sets where run records are persisted; nil disables it.
func (p *Pipeline) SetRecorder(r Recorder) {
	p.recorder = r
}

// logf prints a progress line if a progress writer is configured.
func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.progress != nil {
		fmt.Fprintf(p.progress, "  → "+format+"\n", args...)
	}
}
