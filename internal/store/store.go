// Package store persists the per-project workflow state document under
// <project>/lab/state.json. Writes are atomic (temp file + rename) and
// guarded by an optimistic version field: concurrent writers get ErrStale
// instead of silently losing updates.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tunelab/tunelab/internal/gates"
	"github.com/tunelab/tunelab/internal/workflow"
)

// ErrNotFound is returned when a project has no state document.
var ErrNotFound = fmt.Errorf("state not found")

// ErrStale is returned when a write's version does not match the document
// on disk (another writer got there first).
var ErrStale = fmt.Errorf("stale state version")

// DocDir is the project-relative directory holding the lab documents.
const DocDir = "lab"

// Store manages the workflow state for one project directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the project directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the project directory.
func (s *Store) Root() string {
	return s.root
}

// StatePath returns the path of the state document.
func (s *Store) StatePath() string {
	return filepath.Join(s.root, DocDir, "state.json")
}

// Create initialises the state document with every catalogue step pending
// and a single initialization audit entry.
func (s *Store) Create(project, mode string) (*WorkflowState, error) {
	if _, err := os.Stat(s.StatePath()); err == nil {
		return nil, fmt.Errorf("project %q already initialized", project)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ws := &WorkflowState{
		Project:     project,
		Version:     1,
		Mode:        mode,
		Steps:       make(map[string]*StepState),
		GateResults: make(map[string]*gates.Result),
		Reviews:     make(map[string]ExpertReview),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, step := range workflow.All() {
		ws.Steps[step.ID] = &StepState{Status: StatusPending}
	}
	ws.Audit = append(ws.Audit, AuditEntry{
		At:     now,
		Action: "initialized",
		Detail: fmt.Sprintf("project %s created with %d pending steps", project, len(ws.Steps)),
		Actor:  ActorSystem,
	})

	if err := WriteJSON(s.StatePath(), ws); err != nil {
		return nil, fmt.Errorf("write state: %w", err)
	}
	return ws, nil
}

// Get reads the current state document. Missing fields are defaulted
// permissively: nil maps are allocated and catalogue steps absent from the
// document are added as pending.
func (s *Store) Get() (*WorkflowState, error) {
	var ws WorkflowState
	if err := ReadJSON(s.StatePath(), &ws); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project at %s: %w", s.root, ErrNotFound)
		}
		return nil, err
	}
	applyDefaults(&ws)
	return &ws, nil
}

// Put fully replaces the state document. The caller's version must match
// the document on disk; on success the stored version is incremented and
// UpdatedAt refreshed.
func (s *Store) Put(ws *WorkflowState) error {
	var current WorkflowState
	err := ReadJSON(s.StatePath(), &current)
	switch {
	case err == nil:
		if current.Version != ws.Version {
			return fmt.Errorf("version %d on disk, have %d: %w", current.Version, ws.Version, ErrStale)
		}
	case os.IsNotExist(err):
		// First write.
	default:
		return err
	}

	ws.Version++
	ws.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return WriteJSON(s.StatePath(), ws)
}

// Update performs one read-modify-write cycle. fn must apply exactly one
// transition; errors from fn abort the write and leave state untouched.
func (s *Store) Update(fn func(*WorkflowState) error) (*WorkflowState, error) {
	ws, err := s.Get()
	if err != nil {
		return nil, err
	}
	if err := fn(ws); err != nil {
		return nil, err
	}
	if err := s.Put(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// applyDefaults fills in fields older or hand-edited documents may lack.
func applyDefaults(ws *WorkflowState) {
	if ws.Steps == nil {
		ws.Steps = make(map[string]*StepState)
	}
	if ws.GateResults == nil {
		ws.GateResults = make(map[string]*gates.Result)
	}
	if ws.Reviews == nil {
		ws.Reviews = make(map[string]ExpertReview)
	}
	if ws.Mode == "" {
		ws.Mode = "guided"
	}
	if ws.Version == 0 {
		ws.Version = 1
	}
	for _, step := range workflow.All() {
		if _, ok := ws.Steps[step.ID]; !ok {
			ws.Steps[step.ID] = &StepState{Status: StatusPending}
		}
	}
}
