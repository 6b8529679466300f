package pipeline

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Run draws n samples. Each sample picks a source image uniformly at random,
// applies every operation whose probability fires, and writes the result
// under the output directory.
//
// A sample that fails to decode, transform or write is logged and counted
// in RunResult.Failed; the run carries on. Run returns an error only when
// nothing could be attempted (a missing or empty source, an unwritable
// output directory) or when ctx is cancelled, in which case the partial
// result is returned too.
//
// Per-sample randomness derives from (seed, sample index), so a fixed seed
// gives the same samples regardless of the worker count.
func (p *Pipeline) Run(ctx context.Context, n int) (*RunResult, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample count must not be negative, got %d", n)
	}

	images, err := scanSource(p.source, p.output)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.output, 0o755); err != nil {
		return nil, &WriteError{Path: p.output, Err: err}
	}

	seed := p.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	result := &RunResult{
		RunID:     uuid.NewString(),
		Source:    p.source,
		Output:    p.output,
		Seed:      seed,
		Requested: n,
		StartedAt: time.Now().UTC(),
	}
	p.logf("run %s: %d samples from %d images in %s", result.RunID, n, len(images), p.source)
	klog.V(1).Infof("run %s: seed=%d workers=%d operations=%d", result.RunID, seed, p.workers, len(p.ops))

	if p.recorder != nil {
		names := make([]string, len(p.ops))
		for i, op := range p.ops {
			names[i] = op.Name()
		}
		err := p.recorder.StartRun(RunInfo{
			ID:         result.RunID,
			Source:     p.source,
			Output:     p.output,
			Requested:  n,
			Seed:       seed,
			Workers:    p.workers,
			Operations: names,
			StartedAt:  result.StartedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	var bar *progressbar.ProgressBar
	if p.barOut != nil && n > 0 {
		bar = newBar(p.barOut, n)
	}

	// Each goroutine owns records[i]; no locking needed.
	records := make([]*SampleRecord, n)
	var g errgroup.Group
	g.SetLimit(max(1, p.workers))
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec := p.sample(i, images, seed)
			records[i] = &rec
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		bar.Finish()
	}

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.Err != "" {
			result.Failed++
		} else {
			result.Written++
			result.Bytes += rec.Bytes
			result.Outputs = append(result.Outputs, rec.Output)
		}
		result.Samples = append(result.Samples, *rec)
		if p.recorder != nil {
			if err := p.recorder.RecordSample(result.RunID, *rec); err != nil {
				klog.Warningf("run %s: recording sample %d: %v", result.RunID, rec.Index, err)
			}
		}
	}
	result.Duration = time.Since(result.StartedAt)
	p.state = Executed
	p.logf("run %s: %d written, %d failed in %s", result.RunID, result.Written, result.Failed,
		result.Duration.Round(time.Millisecond))

	if p.recorder != nil {
		if err := p.recorder.FinishRun(result); err != nil {
			klog.Warningf("run %s: recording run finish: %v", result.RunID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run %s interrupted: %w", result.RunID, err)
	}
	return result, nil
}

// sample produces sample i. Every operation consumes a probability draw
// whether or not it fires, keeping the random stream aligned.
func (p *Pipeline) sample(i int, images []sourceImage, seed int64) SampleRecord {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(i)))
	src := images[rng.IntN(len(images))]
	rec := SampleRecord{Index: i, Source: src.path}

	fail := func(err error) SampleRecord {
		klog.Warningf("sample %d (%s) skipped: %v", i, src.path, err)
		rec.Err = err.Error()
		return rec
	}

	img, err := p.engine.Open(src.path)
	if err != nil {
		return fail(err)
	}
	for _, op := range p.ops {
		if rng.Float64() >= op.Probability() {
			continue
		}
		img, err = p.engine.Apply(img, op, rng)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", op.Name(), err))
		}
		rec.Applied = append(rec.Applied, op.Name())
	}

	format := p.format
	if format == "" {
		format = src.ext
	}
	name := fmt.Sprintf("%s_original_%s_%s.%s", src.class, src.base, uuid.NewString(), format)
	path := filepath.Join(p.output, name)
	n, err := WriteAtomic(path, func(w io.Writer) error {
		return p.engine.Encode(w, img, format)
	})
	if err != nil {
		return fail(&WriteError{Path: path, Err: err})
	}
	rec.Output = path
	rec.Bytes = n
	klog.V(2).Infof("sample %d: %s -> %s %v", i, src.path, name, rec.Applied)
	return rec
}

func newBar(w io.Writer, n int) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("augmenting"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}
