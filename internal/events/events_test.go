package events

import (
	"path/filepath"
	"testing"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	if err := l.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return l
}

func TestLogAndQueryTransitions(t *testing.T) {
	l := openTestLog(t)

	if err := l.LogTransition("proj-a", "research_intake", "step_started", "user", ""); err != nil {
		t.Fatalf("LogTransition: %v", err)
	}
	if err := l.LogTransition("proj-a", "research_intake", "step_completed", "user", "1 output"); err != nil {
		t.Fatal(err)
	}
	if err := l.LogTransition("proj-b", "research_intake", "step_started", "user", ""); err != nil {
		t.Fatal(err)
	}

	got, err := l.RecentTransitions("proj-a", 10)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	// Newest first.
	if got[0].Action != "step_completed" {
		t.Errorf("got[0].Action = %q", got[0].Action)
	}

	all, err := l.RecentTransitions("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all projects: got %d, want 3", len(all))
	}
}

func TestGateHistory(t *testing.T) {
	l := openTestLog(t)

	if err := l.LogGateRun("proj-a", "data_quality", false, 2, 1); err != nil {
		t.Fatalf("LogGateRun: %v", err)
	}
	if err := l.LogGateRun("proj-a", "data_quality", true, 0, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.LogGateRun("proj-a", "eval_quality", true, 0, 0); err != nil {
		t.Fatal(err)
	}

	got, err := l.GateHistory("proj-a", "data_quality", 10)
	if err != nil {
		t.Fatalf("GateHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if !got[0].Passed || got[1].Passed {
		t.Errorf("order wrong: %+v", got)
	}
	if got[1].Blockers != 2 {
		t.Errorf("Blockers = %d, want 2", got[1].Blockers)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	l := openTestLog(t)
	if err := l.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}
