package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tunelab/tunelab/internal/workflow"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	ws, err := s.Create("nhis-claims", "guided")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.Project != "nhis-claims" {
		t.Errorf("Project = %q, want %q", ws.Project, "nhis-claims")
	}
	if ws.Version != 1 {
		t.Errorf("Version = %d, want 1", ws.Version)
	}
	if len(ws.Steps) != len(workflow.All()) {
		t.Errorf("Steps has %d entries, want %d", len(ws.Steps), len(workflow.All()))
	}
	for id, st := range ws.Steps {
		if st.Status != StatusPending {
			t.Errorf("step %s status = %q, want pending", id, st.Status)
		}
	}
	if len(ws.Audit) != 1 {
		t.Fatalf("Audit has %d entries, want 1", len(ws.Audit))
	}
	if ws.Audit[0].Action != "initialized" {
		t.Errorf("Audit[0].Action = %q", ws.Audit[0].Action)
	}

	// Round-trip through disk.
	got, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Project != "nhis-claims" {
		t.Errorf("Get Project = %q", got.Project)
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Error("timestamps should not be empty")
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("p", "guided"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create("p", "guided"); err == nil {
		t.Fatal("expected error creating duplicate project")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("p", "guided"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ws, err := s.Update(func(ws *WorkflowState) error {
		ws.Steps["research_intake"].Status = StatusInProgress
		ws.CurrentStep = "research_intake"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ws.Version != 2 {
		t.Errorf("Version = %d, want 2", ws.Version)
	}

	got, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Steps["research_intake"].Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", got.Steps["research_intake"].Status)
	}
	if got.CurrentStep != "research_intake" {
		t.Errorf("CurrentStep = %q", got.CurrentStep)
	}
}

func TestUpdateErrorLeavesStateUntouched(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("p", "guided"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	_, err := s.Update(func(ws *WorkflowState) error {
		ws.Steps["research_intake"].Status = StatusCompleted
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, _ := s.Get()
	if got.Steps["research_intake"].Status != StatusPending {
		t.Error("failed update must not mutate persisted state")
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
}

func TestPutStaleVersion(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("p", "guided"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	a, _ := s.Get()
	b, _ := s.Get()

	if err := s.Put(a); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	err := s.Put(b)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
}

func TestGetDefaultsMissingFields(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	// A minimal hand-written document: no maps, no mode, no version.
	path := filepath.Join(dir, DocDir, "state.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"project":"legacy"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ws.Mode != "guided" {
		t.Errorf("Mode = %q, want guided default", ws.Mode)
	}
	if ws.Version != 1 {
		t.Errorf("Version = %d, want 1", ws.Version)
	}
	if len(ws.Steps) != len(workflow.All()) {
		t.Errorf("Steps defaulted to %d entries, want %d", len(ws.Steps), len(workflow.All()))
	}
	if ws.Reviews == nil || ws.GateResults == nil {
		t.Error("maps should be allocated")
	}
}

func TestWriteAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	if err := WriteAtomic(path, []byte("first")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := WriteAtomic(path, []byte("second")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	// No stray temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1", len(entries))
	}
}
