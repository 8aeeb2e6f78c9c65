package analytics

import (
	"database/sql"
	"testing"

	"github.com/tunelab/tunelab/internal/events"
)

func testLog(t *testing.T) *events.Log {
	t.Helper()
	l, err := events.Open(":memory:")
	if err != nil {
		t.Fatalf("open test log: %v", err)
	}
	if err := l.Migrate(); err != nil {
		t.Fatalf("migrate test log: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func exec(t *testing.T, conn *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := conn.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func insertTransition(t *testing.T, l *events.Log, project, step, action, ts string) {
	t.Helper()
	exec(t, l.Conn(), `INSERT INTO transitions (project, step, action, actor, timestamp) VALUES (?, ?, ?, 'user', ?)`,
		project, step, action, ts)
}

func insertGateRun(t *testing.T, l *events.Log, project, gate string, passed bool, blockers int, ts string) {
	t.Helper()
	exec(t, l.Conn(), `INSERT INTO gate_runs (project, gate, passed, blockers, warnings, timestamp) VALUES (?, ?, ?, ?, 0, ?)`,
		project, gate, passed, blockers, ts)
}

func TestQueryStepDurations(t *testing.T) {
	l := testLog(t)

	// lab-a: run_training takes 10 min; lab-b: 20 min
	insertTransition(t, l, "lab-a", "run_training", "step_started", "2026-06-01 10:00:00")
	insertTransition(t, l, "lab-a", "run_training", "completed", "2026-06-01 10:10:00")
	insertTransition(t, l, "lab-b", "run_training", "step_started", "2026-06-02 10:00:00")
	insertTransition(t, l, "lab-b", "run_training", "completed", "2026-06-02 10:20:00")

	results, err := QueryStepDurations(l, "")
	if err != nil {
		t.Fatalf("QueryStepDurations: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 step duration result, got %d", len(results))
	}
	r := results[0]
	if r.Step != "run_training" {
		t.Errorf("step = %q, want run_training", r.Step)
	}
	if r.Count != 2 {
		t.Errorf("count = %d, want 2", r.Count)
	}
	if r.Avg != 15.0 {
		t.Errorf("avg = %f, want 15.0", r.Avg)
	}
}

func TestQueryStepDurations_BlockedCounts(t *testing.T) {
	l := testLog(t)

	insertTransition(t, l, "lab-a", "validate_dataset", "step_started", "2026-06-01 09:00:00")
	insertTransition(t, l, "lab-a", "validate_dataset", "blocked", "2026-06-01 09:30:00")

	results, err := QueryStepDurations(l, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Avg != 30.0 {
		t.Errorf("expected one 30-minute blocked duration, got %+v", results)
	}
}

func TestQueryStepDurations_NoStartIgnored(t *testing.T) {
	l := testLog(t)

	// terminal event with no prior start is skipped, not an error
	insertTransition(t, l, "lab-a", "research_intake", "completed", "2026-06-01 10:00:00")

	results, err := QueryStepDurations(l, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %+v", results)
	}
}

func TestQueryStepDurations_Since(t *testing.T) {
	l := testLog(t)

	insertTransition(t, l, "lab-a", "run_training", "step_started", "2026-01-01 10:00:00")
	insertTransition(t, l, "lab-a", "run_training", "completed", "2026-01-01 10:30:00")
	insertTransition(t, l, "lab-a", "evaluate_model", "step_started", "2026-06-01 10:00:00")
	insertTransition(t, l, "lab-a", "evaluate_model", "needs_review", "2026-06-01 10:05:00")

	results, err := QueryStepDurations(l, "2026-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Step != "evaluate_model" {
		t.Errorf("since filter failed: %+v", results)
	}
}

func TestQueryGatePassRates(t *testing.T) {
	l := testLog(t)

	// lab-a fails data_quality twice, then passes
	insertGateRun(t, l, "lab-a", "data_quality", false, 2, "2026-06-01 10:00:00")
	insertGateRun(t, l, "lab-a", "data_quality", false, 1, "2026-06-01 11:00:00")
	insertGateRun(t, l, "lab-a", "data_quality", true, 0, "2026-06-01 12:00:00")
	// lab-b passes first time
	insertGateRun(t, l, "lab-b", "data_quality", true, 0, "2026-06-02 10:00:00")

	results, err := QueryGatePassRates(l, "")
	if err != nil {
		t.Fatalf("QueryGatePassRates: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 gate, got %d", len(results))
	}
	r := results[0]
	if r.Gate != "data_quality" {
		t.Errorf("gate = %q", r.Gate)
	}
	if r.Runs != 4 {
		t.Errorf("runs = %d, want 4", r.Runs)
	}
	if r.PassPct != 50.0 {
		t.Errorf("pass pct = %f, want 50.0", r.PassPct)
	}
	// first runs: lab-a failed, lab-b passed
	if r.FirstPassPct != 50.0 {
		t.Errorf("first pass pct = %f, want 50.0", r.FirstPassPct)
	}
}

func TestQueryProjectActivity(t *testing.T) {
	l := testLog(t)

	insertTransition(t, l, "lab-a", "research_intake", "step_started", "2026-06-01 10:00:00")
	insertTransition(t, l, "lab-a", "validate_dataset", "blocker_overridden", "2026-06-03 10:00:00")
	insertTransition(t, l, "lab-b", "research_intake", "step_started", "2026-06-02 10:00:00")

	results, err := QueryProjectActivity(l, "")
	if err != nil {
		t.Fatalf("QueryProjectActivity: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(results))
	}
	// newest activity first
	if results[0].Project != "lab-a" {
		t.Errorf("first project = %q, want lab-a", results[0].Project)
	}
	if results[0].Overrides != 1 {
		t.Errorf("lab-a overrides = %d, want 1", results[0].Overrides)
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(vals, 50); got != 5.0 {
		t.Errorf("p50 = %f, want 5.0", got)
	}
	if got := percentile(vals, 95); got != 10.0 {
		t.Errorf("p95 = %f, want 10.0", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("p50 of empty = %f, want 0", got)
	}
}
