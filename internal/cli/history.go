package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded augmentation runs",
	Long: `List runs recorded in the run ledger, newest first.

Runs are only recorded when augment is invoked with --db or AUGMENT_DB set.
Without either, history reads ~/.augment/augment.db.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB(ledgerDSN())
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := d.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}

		t := newTable("RUN", "STARTED", "STATUS", "WRITTEN", "FAILED", "SIZE", "SOURCE")
		for _, r := range runs {
			t.Row(r.ID, started(r.StartedAt), r.Status,
				fmt.Sprintf("%d/%d", r.Written, r.Requested), strconv.Itoa(r.Failed),
				humanize.Bytes(uint64(r.Bytes)), r.Source)
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its samples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB(ledgerDSN())
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := d.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", args[0])
		}
		samples, err := d.ListSamples(run.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:        %s\n", run.ID)
		fmt.Fprintf(out, "Status:     %s\n", run.Status)
		fmt.Fprintf(out, "Started:    %s\n", run.StartedAt)
		fmt.Fprintf(out, "Duration:   %s\n", time.Duration(run.DurationMs)*time.Millisecond)
		fmt.Fprintf(out, "Source:     %s\n", run.Source)
		fmt.Fprintf(out, "Output:     %s\n", run.Output)
		fmt.Fprintf(out, "Seed:       %d (workers %d)\n", run.Seed, run.Workers)
		fmt.Fprintf(out, "Operations: %s\n", strings.Join(run.Operations, " → "))
		fmt.Fprintf(out, "Samples:    %d written, %d failed of %d (%s)\n",
			run.Written, run.Failed, run.Requested, humanize.Bytes(uint64(run.Bytes)))
		if len(samples) == 0 {
			return nil
		}

		t := newTable("#", "SOURCE", "APPLIED", "RESULT")
		for _, s := range samples {
			result := s.Output
			if s.Error != "" {
				result = "error: " + s.Error
			}
			t.Row(strconv.Itoa(s.Index), s.Source, strings.Join(s.Applied, ", "), result)
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

// started renders an RFC 3339 timestamp relative to now, falling back to
// the raw value.
func started(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list (0 = all)")
	historyCmd.AddCommand(historyShowCmd)
}
