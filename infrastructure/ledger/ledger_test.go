package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"speech-clipper/domain/clip"
)

func newTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger", "runs.db")
	l, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, dbPath
}

func TestNew_CreatesTables(t *testing.T) {
	l, _ := newTestLedger(t)
	defer l.Close()

	for _, table := range []string{"runs", "outcomes", "_migrations"} {
		var name string
		err := l.conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	l1, dbPath := newTestLedger(t)
	l1.Close()

	l2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer l2.Close()

	var count int
	if err := l2.conn.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations error = %v", err)
	}
	if count != 1 {
		t.Errorf("migration count = %d, want 1", count)
	}
}

func TestLedger_RunLifecycle(t *testing.T) {
	l, _ := newTestLedger(t)
	defer l.Close()
	ctx := context.Background()

	if err := l.StartRun(ctx, "run-1", "data/manifest.csv"); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	summary := &clip.Summary{RunID: "run-1"}
	outcomes := []clip.Outcome{
		{Line: 2, SegmentID: "SEG1", Status: clip.StatusCompleted, OutputPath: "clips/SEG1.wav"},
		{Line: 3, SegmentID: "SEG2", Status: clip.StatusSkipped, Reason: clip.ReasonInvalidTimestamps},
		{Line: 4, SegmentID: "SEG3", Status: clip.StatusFailed, ExitStatus: 1, OutputPath: "clips/SEG3.wav"},
	}
	for _, o := range outcomes {
		summary.Add(o)
		if err := l.Record(ctx, "run-1", o); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := l.FinishRun(ctx, summary); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	run, err := l.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != RunFinished || run.Completed != 1 || run.Skipped != 1 || run.Failed != 1 {
		t.Errorf("run = %+v", run)
	}

	got, err := l.Outcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("Outcomes() error = %v", err)
	}
	if len(got) != len(outcomes) {
		t.Fatalf("got %d outcomes, want %d", len(got), len(outcomes))
	}
	for i := range outcomes {
		if got[i] != outcomes[i] {
			t.Errorf("outcome[%d] = %+v, want %+v", i, got[i], outcomes[i])
		}
	}
}

func TestLedger_RecordUnknownRunFails(t *testing.T) {
	l, _ := newTestLedger(t)
	defer l.Close()

	err := l.Record(context.Background(), "missing-run", clip.Outcome{SegmentID: "SEG1"})
	if err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func TestLedger_GetRunUnknown(t *testing.T) {
	l, _ := newTestLedger(t)
	defer l.Close()

	run, err := l.GetRun(context.Background(), "nope")
	if err != nil || run != nil {
		t.Errorf("GetRun() = %v, %v; want nil, nil", run, err)
	}
}

func TestMarkInterruptedRuns(t *testing.T) {
	l1, dbPath := newTestLedger(t)
	if err := l1.StartRun(context.Background(), "run-killed", "m.csv"); err != nil {
		t.Fatal(err)
	}
	l1.Close()

	l2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l2.Close()

	run, err := l2.GetRun(context.Background(), "run-killed")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != RunInterrupted {
		t.Errorf("Status = %q, want %q", run.Status, RunInterrupted)
	}
}
