package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lucasnoah/augment/internal/pipeline"
)

// Run represents a row in the runs table.
type Run struct {
	ID         string
	Source     string
	Output     string
	Requested  int
	Written    int
	Failed     int
	Bytes      int64
	Seed       int64
	Workers    int
	Operations []string
	Status     string
	StartedAt  string
	FinishedAt string
	DurationMs int64
}

// Sample represents a row in the samples table.
type Sample struct {
	RunID   string
	Index   int
	Source  string
	Output  string
	Applied []string
	Bytes   int64
	Error   string
}

// StartRun inserts a run in the running state.
func (d *DB) StartRun(info pipeline.RunInfo) error {
	_, err := d.exec(
		`INSERT INTO runs (id, source, output, requested, seed, workers, operations, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'running', ?)`,
		info.ID, info.Source, info.Output, info.Requested, info.Seed, info.Workers,
		strings.Join(info.Operations, ","), info.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordSample inserts the outcome of one sample.
func (d *DB) RecordSample(runID string, s pipeline.SampleRecord) error {
	_, err := d.exec(
		`INSERT INTO samples (run_id, idx, source, output, applied, bytes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, s.Index, s.Source, nullString(s.Output), strings.Join(s.Applied, ","), s.Bytes, nullString(s.Err),
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// FinishRun stores a run's totals. A run that stopped before attempting
// every sample is marked interrupted; one with failed samples is partial.
func (d *DB) FinishRun(result *pipeline.RunResult) error {
	status := "completed"
	switch {
	case result.Written+result.Failed < result.Requested:
		status = "interrupted"
	case result.Failed > 0:
		status = "partial"
	}
	finished := result.StartedAt.Add(result.Duration).UTC().Format(time.RFC3339)
	res, err := d.exec(
		`UPDATE runs SET written = ?, failed = ?, bytes = ?, status = ?, finished_at = ?, duration_ms = ?
		 WHERE id = ?`,
		result.Written, result.Failed, result.Bytes, status, finished, result.Duration.Milliseconds(), result.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s not found", result.RunID)
	}
	return nil
}

const runColumns = `id, source, output, requested, written, failed, bytes, seed, workers,
	operations, status, started_at, finished_at, duration_ms`

func scanRun(scan func(...any) error) (*Run, error) {
	var r Run
	var ops string
	var finished sql.NullString
	var duration sql.NullInt64
	err := scan(&r.ID, &r.Source, &r.Output, &r.Requested, &r.Written, &r.Failed, &r.Bytes,
		&r.Seed, &r.Workers, &ops, &r.Status, &r.StartedAt, &finished, &duration)
	if err != nil {
		return nil, err
	}
	r.Operations = splitList(ops)
	r.FinishedAt = finished.String
	r.DurationMs = duration.Int64
	return &r, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	q := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or nil if there is none.
func (d *DB) GetRun(id string) (*Run, error) {
	r, err := scanRun(d.queryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

// ListSamples returns a run's samples in index order.
func (d *DB) ListSamples(runID string) ([]Sample, error) {
	rows, err := d.query(
		`SELECT run_id, idx, source, output, applied, bytes, error
		 FROM samples WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var output, errMsg sql.NullString
		var applied string
		if err := rows.Scan(&s.RunID, &s.Index, &s.Source, &output, &applied, &s.Bytes, &errMsg); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Output = output.String
		s.Error = errMsg.String
		s.Applied = splitList(applied)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
