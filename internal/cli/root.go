package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/lucasnoah/augment/internal/augment"
	"github.com/lucasnoah/augment/internal/config"
	"github.com/lucasnoah/augment/internal/pipeline"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	sourcePath   string
	samples      int
	outputDir    string
	seed         int64
	workers      int
	format       string
	showProgress bool
	dbDSN        string
)

var rootCmd = &cobra.Command{
	Use:   "augment",
	Short: "augment — sample augmented images from a dataset directory",
	Long: `augment draws random samples from a directory of images and writes
augmented copies of them. Each sample passes through an ordered list of
operations (zoom, flips, brightness, distortions, shear, ...), each firing
with its own probability.

Without --path nothing is sampled. The operation list comes from --config,
else ./augment.yaml, ./augment.toml or ~/.augment/config.yaml, else the
built-in default pipeline. Output goes to <path>/output.`,
	Args: cobra.NoArgs,
	RunE: runRoot,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func runRoot(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if sourcePath == "" {
		fmt.Fprintln(out, "No path specified")
		return nil
	}
	fmt.Fprintf(out, "The specified path is: %s\n", sourcePath)

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", e)
		}
		return fmt.Errorf("config has %d validation error(s)", len(errs))
	}

	pc := cfg.Pipeline
	p := pipeline.New(pc.Source, pc.OutputDir(), augment.ImagingEngine{})
	for _, spec := range pc.Operations {
		if err := p.AddOperation(spec); err != nil {
			return err
		}
	}
	p.SetSeed(pc.Seed)
	p.SetWorkers(pc.Workers)
	p.SetFormat(pc.Format)
	p.SetProgress(cmd.ErrOrStderr())
	if showProgress {
		p.SetProgressBar(cmd.ErrOrStderr())
	}

	if dsn := ledgerDSN(); dsn != "" {
		d, cleanup, err := openDB(dsn)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer cleanup()
		p.SetRecorder(d)
	}

	res, err := p.Run(cmd.Context(), pc.Samples)
	if res != nil {
		printSummary(out, res)
	}
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d samples failed", res.Failed, res.Requested)
	}
	return nil
}

// loadRunConfig resolves the pipeline config for a run the same way
// "config show" does, then puts --path and any explicitly set flags on top.
// A relative --output is taken from the working directory.
func loadRunConfig(cmd *cobra.Command) (*config.PipelineConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	p := &cfg.Pipeline
	p.Source = sourcePath
	flags := cmd.Flags()
	if flags.Changed("samples") {
		p.Samples = samples
	}
	if flags.Changed("output") {
		abs, err := filepath.Abs(outputDir)
		if err != nil {
			return nil, fmt.Errorf("resolving output directory: %w", err)
		}
		p.Output = abs
	}
	if flags.Changed("seed") {
		p.Seed = seed
	}
	if flags.Changed("workers") {
		p.Workers = workers
	}
	if flags.Changed("format") {
		p.Format = format
	}
	klog.V(1).Infof("resolved pipeline: source=%s output=%s samples=%d operations=%d",
		p.Source, p.OutputDir(), p.Samples, len(p.Operations))
	return cfg, nil
}

func printSummary(w io.Writer, res *pipeline.RunResult) {
	fmt.Fprintf(w, "Wrote %d of %d samples (%s) to %s in %s\n",
		res.Written, res.Requested, humanize.Bytes(uint64(res.Bytes)), res.Output,
		res.Duration.Round(time.Millisecond))
	if res.Failed > 0 {
		fmt.Fprintf(w, "Skipped %d failed sample(s); see log for details\n", res.Failed)
	}
	fmt.Fprintf(w, "Run ID: %s (seed %d)\n", res.RunID, res.Seed)
}

// ledgerDSN returns the run ledger DSN from --db or AUGMENT_DB.
func ledgerDSN() string {
	if dbDSN != "" {
		return dbDSN
	}
	return os.Getenv("AUGMENT_DB")
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&sourcePath, "path", "", "dataset directory to sample from")
	f.StringVarP(&configFile, "config", "f", "", "pipeline config file (YAML or TOML)")
	f.IntVarP(&samples, "samples", "n", config.DefaultSamples, "number of samples to generate")
	f.StringVarP(&outputDir, "output", "o", "", "output directory, relative to the working directory (default <path>/output)")
	f.Int64Var(&seed, "seed", 0, "random seed; 0 picks one from the clock")
	f.IntVar(&workers, "workers", 1, "samples processed in parallel")
	f.StringVar(&format, "format", "", "output image format (png, jpeg, gif, tiff, bmp); default keeps the source format")
	f.BoolVar(&showProgress, "progress", false, "show a progress bar on stderr")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "run ledger database (SQLite path or postgres:// URL); env AUGMENT_DB")

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(opsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(dbCmd)
}
