package db

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lucasnoah/augment/internal/augment"
	"github.com/lucasnoah/augment/internal/pipeline"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func startRun(t *testing.T, d *DB, id string, startedAt time.Time) {
	t.Helper()
	err := d.StartRun(pipeline.RunInfo{
		ID:         id,
		Source:     "/data/leo",
		Output:     "/data/leo/output",
		Requested:  3,
		Seed:       42,
		Workers:    2,
		Operations: []string{"zoom", "shear"},
		StartedAt:  startedAt,
	})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Verify all tables exist
	tables := []string{"schema_version", "runs", "samples"}
	for _, table := range tables {
		var name string
		err := d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	// Verify schema_version was recorded
	var version int
	if err := d.conn.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}

	// Migrate again should be idempotent
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)
	startRun(t, d, "r1", time.Now())

	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	run, err := d.GetRun("r1")
	if err != nil {
		t.Fatalf("get run after reset: %v", err)
	}
	if run != nil {
		t.Error("expected nil run after reset")
	}
}

func TestStartRun_GetRun(t *testing.T) {
	d := testDB(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startRun(t, d, "r1", started)

	run, err := d.GetRun("r1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run == nil {
		t.Fatal("expected run, got nil")
	}
	if run.Status != "running" {
		t.Errorf("Status = %q, want running", run.Status)
	}
	if run.Requested != 3 || run.Seed != 42 || run.Workers != 2 {
		t.Errorf("run = %+v", run)
	}
	if len(run.Operations) != 2 || run.Operations[1] != "shear" {
		t.Errorf("Operations = %v, want [zoom shear]", run.Operations)
	}
	if run.StartedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("StartedAt = %q", run.StartedAt)
	}
	if run.FinishedAt != "" {
		t.Errorf("FinishedAt = %q, want empty", run.FinishedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	d := testDB(t)
	run, err := d.GetRun("missing")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil, got %+v", run)
	}
}

func TestRecordSample_ListSamples(t *testing.T) {
	d := testDB(t)
	startRun(t, d, "r1", time.Now())

	samples := []pipeline.SampleRecord{
		{Index: 1, Source: "/data/leo/b.png", Err: "corrupt image"},
		{Index: 0, Source: "/data/leo/a.png", Output: "/data/leo/output/x.png", Applied: []string{"zoom", "shear"}, Bytes: 512},
	}
	for _, s := range samples {
		if err := d.RecordSample("r1", s); err != nil {
			t.Fatalf("record sample: %v", err)
		}
	}

	got, err := d.ListSamples("r1")
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0].Index != 0 || got[0].Bytes != 512 || got[0].Output != "/data/leo/output/x.png" {
		t.Errorf("sample 0 = %+v", got[0])
	}
	if len(got[0].Applied) != 2 || got[0].Applied[0] != "zoom" {
		t.Errorf("Applied = %v, want [zoom shear]", got[0].Applied)
	}
	if got[1].Error != "corrupt image" || got[1].Output != "" || got[1].Applied != nil {
		t.Errorf("sample 1 = %+v", got[1])
	}
}

func TestRecordSample_UnknownRun(t *testing.T) {
	d := testDB(t)
	err := d.RecordSample("nope", pipeline.SampleRecord{Index: 0, Source: "a.png"})
	if err == nil {
		t.Fatal("expected foreign key error for unknown run")
	}
}

func TestFinishRun(t *testing.T) {
	d := testDB(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startRun(t, d, "ok", started)
	startRun(t, d, "partial", started.Add(time.Minute))

	if err := d.FinishRun(&pipeline.RunResult{RunID: "ok", Requested: 3, Written: 3, Bytes: 900, StartedAt: started, Duration: 2 * time.Second}); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if err := d.FinishRun(&pipeline.RunResult{RunID: "partial", Requested: 3, Written: 2, Failed: 1, StartedAt: started, Duration: time.Second}); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	ok, _ := d.GetRun("ok")
	if ok.Status != "completed" || ok.Written != 3 || ok.Bytes != 900 || ok.DurationMs != 2000 {
		t.Errorf("ok run = %+v", ok)
	}
	if ok.FinishedAt != "2026-03-01T12:00:02Z" {
		t.Errorf("FinishedAt = %q", ok.FinishedAt)
	}
	partial, _ := d.GetRun("partial")
	if partial.Status != "partial" || partial.Failed != 1 {
		t.Errorf("partial run = %+v", partial)
	}

	if err := d.FinishRun(&pipeline.RunResult{RunID: "missing"}); err == nil {
		t.Error("expected error finishing unknown run")
	}
}

func TestListRuns(t *testing.T) {
	d := testDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startRun(t, d, "first", base)
	startRun(t, d, "second", base.Add(time.Hour))
	startRun(t, d, "third", base.Add(2*time.Hour))

	runs, err := d.ListRuns(0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "third" || runs[2].ID != "first" {
		t.Errorf("order = %s, %s, %s; want newest first", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	runs, err = d.ListRuns(2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(runs))
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{postgres: true}
	got := pg.rebind("UPDATE runs SET a = ?, b = ? WHERE id = ?")
	if got != "UPDATE runs SET a = $1, b = $2 WHERE id = $3" {
		t.Errorf("rebind = %q", got)
	}
	lite := &DB{}
	if q := lite.rebind("SELECT ?"); q != "SELECT ?" {
		t.Errorf("sqlite rebind = %q", q)
	}
	if !IsPostgres("postgres://u@localhost/augment") || IsPostgres("/tmp/augment.db") {
		t.Error("IsPostgres misclassified a DSN")
	}
}

func TestFinishRun_Interrupted(t *testing.T) {
	d := testDB(t)
	startRun(t, d, "stopped", time.Now())
	if err := d.FinishRun(&pipeline.RunResult{RunID: "stopped", Requested: 3, Written: 1, Failed: 1}); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	run, _ := d.GetRun("stopped")
	if run.Status != "interrupted" {
		t.Errorf("Status = %q, want interrupted", run.Status)
	}
}

func TestCancelledPipelineRunIsInterrupted(t *testing.T) {
	d := testDB(t)
	src := t.TempDir()
	img := imaging.New(8, 8, color.NRGBA{R: 200, A: 255})
	if err := imaging.Save(img, filepath.Join(src, "a.png")); err != nil {
		t.Fatalf("save image: %v", err)
	}

	p := pipeline.New(src, "", augment.ImagingEngine{})
	p.SetRecorder(d)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, 50)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if res == nil {
		t.Fatal("expected partial result")
	}

	run, err := d.GetRun(res.RunID)
	if err != nil || run == nil {
		t.Fatalf("get run: %v (run=%v)", err, run)
	}
	if run.Status != "interrupted" {
		t.Errorf("Status = %q, want interrupted", run.Status)
	}
	if run.Requested != 50 || run.Written != 0 {
		t.Errorf("run = %+v", run)
	}
}

// The ledger satisfies the pipeline's recorder.
var _ pipeline.Recorder = (*DB)(nil)
