package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vjranagit/memtrend/pkg/series"
)

func testRun(id, workload string, createdAt time.Time) *Run {
	return &Run{
		ID:        id,
		Label:     workload + " run",
		Workload:  workload,
		Labels:    map[string]string{"host": "bench1"},
		CreatedAt: createdAt,
		Samples: []series.Sample{
			{ElapsedSeconds: 0, Value: 100 << 20},
			{ElapsedSeconds: 0.5, Value: 101 << 20},
			{ElapsedSeconds: 1.0, Value: 102 << 20},
		},
		Iterations: 1000,
	}
}

func TestArchivePutAndGet(t *testing.T) {
	tmpDir := t.TempDir()

	arc, err := Open(&Config{Path: tmpDir, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer arc.Close()

	ctx := context.Background()
	want := testRun("leaky-20260821-120000", "leaky", time.Now().UTC())

	if err := arc.Put(ctx, want); err != nil {
		t.Fatalf("Failed to put run: %v", err)
	}

	got, err := arc.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}

	if got.ID != want.ID {
		t.Errorf("Expected ID %q, got %q", want.ID, got.ID)
	}
	if got.Workload != want.Workload {
		t.Errorf("Expected workload %q, got %q", want.Workload, got.Workload)
	}
	if got.Labels["host"] != "bench1" {
		t.Errorf("Expected host label bench1, got %q", got.Labels["host"])
	}
	if got.Iterations != want.Iterations {
		t.Errorf("Expected %d iterations, got %d", want.Iterations, got.Iterations)
	}
	if len(got.Samples) != len(want.Samples) {
		t.Fatalf("Expected %d samples, got %d", len(want.Samples), len(got.Samples))
	}
	for i := range want.Samples {
		if got.Samples[i] != want.Samples[i] {
			t.Errorf("Sample mismatch at %d: expected %+v, got %+v",
				i, want.Samples[i], got.Samples[i])
		}
	}
}

func TestArchiveGetMissing(t *testing.T) {
	tmpDir := t.TempDir()

	arc, err := Open(&Config{Path: tmpDir, CompressionLevel: 1})
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer arc.Close()

	_, err = arc.Get(context.Background(), "no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestArchivePutRequiresID(t *testing.T) {
	tmpDir := t.TempDir()

	arc, err := Open(&Config{Path: tmpDir, CompressionLevel: 1})
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer arc.Close()

	run := testRun("", "leaky", time.Now())
	if err := arc.Put(context.Background(), run); err == nil {
		t.Fatal("Expected error for run without ID")
	}
}

func TestArchiveListNewestFirst(t *testing.T) {
	tmpDir := t.TempDir()

	arc, err := Open(&Config{Path: tmpDir, CompressionLevel: 1})
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer arc.Close()

	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		run := testRun(id, "leaky", base.Add(time.Duration(i)*time.Minute))
		if err := arc.Put(ctx, run); err != nil {
			t.Fatalf("Failed to put %s: %v", id, err)
		}
	}

	runs, err := arc.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}

	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}

	wantOrder := []string{"run-new", "run-mid", "run-old"}
	for i, want := range wantOrder {
		if runs[i].ID != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, runs[i].ID)
		}
	}
}

func TestArchiveFindByLabels(t *testing.T) {
	tmpDir := t.TempDir()

	arc, err := Open(&Config{Path: tmpDir, CompressionLevel: 1})
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer arc.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	leakyA := testRun("leaky-a", "leaky", now)
	leakyB := testRun("leaky-b", "leaky", now.Add(time.Minute))
	leakyB.Labels = map[string]string{"host": "bench2"}
	clean := testRun("clean-a", "clean", now.Add(2*time.Minute))

	for _, run := range []*Run{leakyA, leakyB, clean} {
		if err := arc.Put(ctx, run); err != nil {
			t.Fatalf("Failed to put %s: %v", run.ID, err)
		}
	}

	leaky, err := arc.Find(ctx, map[string]string{"workload": "leaky"})
	if err != nil {
		t.Fatalf("Failed to find leaky runs: %v", err)
	}
	if len(leaky) != 2 {
		t.Errorf("Expected 2 leaky runs, got %d", len(leaky))
	}

	narrowed, err := arc.Find(ctx, map[string]string{"workload": "leaky", "host": "bench2"})
	if err != nil {
		t.Fatalf("Failed to find narrowed runs: %v", err)
	}
	if len(narrowed) != 1 || narrowed[0].ID != "leaky-b" {
		t.Errorf("Expected only leaky-b, got %v", runIDs(narrowed))
	}

	missing, err := arc.Find(ctx, map[string]string{"workload": "unknown"})
	if err != nil {
		t.Fatalf("Failed to find missing workload: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("Expected no runs, got %d", len(missing))
	}
}

func TestArchiveReopenRebuildsIndex(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{Path: tmpDir, CompressionLevel: 1}
	ctx := context.Background()

	arc, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}

	now := time.Now().UTC()
	for _, id := range []string{"run-1", "run-2"} {
		if err := arc.Put(ctx, testRun(id, "leaky", now)); err != nil {
			t.Fatalf("Failed to put %s: %v", id, err)
		}
		now = now.Add(time.Second)
	}

	if err := arc.Close(); err != nil {
		t.Fatalf("Failed to close archive: %v", err)
	}

	reopened, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to reopen archive: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list after reopen: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs after reopen, got %d", len(runs))
	}

	found, err := reopened.Find(ctx, map[string]string{"workload": "leaky"})
	if err != nil {
		t.Fatalf("Failed to find after reopen: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("Expected rebuilt index to find 2 runs, got %d", len(found))
	}
}

func TestArchiveEmptyRun(t *testing.T) {
	tmpDir := t.TempDir()

	arc, err := Open(&Config{Path: tmpDir, CompressionLevel: 1})
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer arc.Close()

	ctx := context.Background()
	run := &Run{ID: "empty-run", Label: "empty", Workload: "clean", CreatedAt: time.Now()}

	if err := arc.Put(ctx, run); err != nil {
		t.Fatalf("Failed to put empty run: %v", err)
	}

	got, err := arc.Get(ctx, "empty-run")
	if err != nil {
		t.Fatalf("Failed to get empty run: %v", err)
	}
	if len(got.Samples) != 0 {
		t.Errorf("Expected no samples, got %d", len(got.Samples))
	}
}

func TestRunSeries(t *testing.T) {
	run := testRun("leaky-x", "leaky", time.Now())

	s := run.Series()
	if s.State != series.Closed {
		t.Errorf("Expected closed series, got %v", s.State)
	}
	if s.Label != run.Label {
		t.Errorf("Expected label %q, got %q", run.Label, s.Label)
	}
	if s.Len() != len(run.Samples) {
		t.Errorf("Expected %d samples, got %d", len(run.Samples), s.Len())
	}
}

func runIDs(runs []*Run) []string {
	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
	}
	return ids
}
