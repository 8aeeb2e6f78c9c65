// Package state implements the step state machine: it owns every transition
// of a project's workflow state and consults the gate evaluator before a
// gated step may complete. Gate failures are data (a blocked step plus a
// blocker list), never errors; precedence and lookup failures are hard
// errors that abort before any mutation.
package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tunelab/tunelab/internal/gates"
	"github.com/tunelab/tunelab/internal/store"
	"github.com/tunelab/tunelab/internal/workflow"
)

// ErrPrecedence is returned when a step is started out of order.
var ErrPrecedence = fmt.Errorf("precedence violation")

// ErrInvalidTransition is returned for transitions the current status does
// not allow (e.g. skipping a completed step).
var ErrInvalidTransition = fmt.Errorf("invalid transition")

// TransitionLogger mirrors transitions into the event log. The JSON audit
// trail stays authoritative; the logger is best-effort.
type TransitionLogger interface {
	LogTransition(project, step, action, actor, detail string) error
	LogGateRun(project, gate string, passed bool, blockers, warnings int) error
}

// Machine applies workflow transitions for one project.
type Machine struct {
	store *store.Store
	eval  *gates.Evaluator
	log   TransitionLogger // may be nil
}

// NewMachine creates a Machine over the given store and evaluator.
func NewMachine(st *store.Store, eval *gates.Evaluator) *Machine {
	return &Machine{store: st, eval: eval}
}

// SetLogger attaches an event log mirror.
func (m *Machine) SetLogger(l TransitionLogger) {
	m.log = l
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Start moves a pending step to in_progress. The immediately preceding
// catalogue step must be completed or skipped.
func (m *Machine) Start(stepID, actor string) (*store.WorkflowState, error) {
	step, err := workflow.Lookup(stepID)
	if err != nil {
		return nil, err
	}

	ws, err := m.store.Update(func(ws *store.WorkflowState) error {
		st := ws.Steps[step.ID]
		if st.Status != store.StatusPending {
			return fmt.Errorf("start %s from %s: %w", step.ID, st.Status, ErrInvalidTransition)
		}
		if prev, ok, _ := workflow.Prev(step.ID); ok {
			ps := ws.Steps[prev.ID]
			if ps.Status != store.StatusCompleted && ps.Status != store.StatusSkipped {
				return fmt.Errorf("step %s requires %s to be completed or skipped (is %s): %w",
					step.ID, prev.ID, ps.Status, ErrPrecedence)
			}
		}
		st.Status = store.StatusInProgress
		st.StartedAt = now()
		ws.CurrentStep = step.ID
		appendAudit(ws, store.AuditEntry{
			Action: "step_started",
			Step:   step.ID,
			Detail: fmt.Sprintf("%s started by %s agent", step.Name, step.Agent),
			Actor:  actor,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.mirror(ws.Project, step.ID, "step_started", actor, "")
	return ws, nil
}

// Complete attempts to finish a step. For gated steps the gate is evaluated
// first: blockers move the step to blocked and record the attempt. A passing
// gate (or no gate) moves the step to needs_review when a reviewer role is
// declared, otherwise to completed with the given output files.
func (m *Machine) Complete(stepID string, outputs []string, actor string) (*store.WorkflowState, *gates.Result, error) {
	step, err := workflow.Lookup(stepID)
	if err != nil {
		return nil, nil, err
	}

	var result *gates.Result
	if step.Gate != "" {
		result, err = m.eval.Evaluate(step.Gate)
		if err != nil {
			return nil, nil, fmt.Errorf("evaluate gate %s: %w", step.Gate, err)
		}
	}

	ws, err := m.store.Update(func(ws *store.WorkflowState) error {
		st := ws.Steps[step.ID]
		if st.Status != store.StatusInProgress && st.Status != store.StatusBlocked {
			return fmt.Errorf("complete %s from %s: %w", step.ID, st.Status, ErrInvalidTransition)
		}

		if result != nil {
			ws.GateResults[step.Gate] = result
			if !result.Passed {
				st.Status = store.StatusBlocked
				st.LastError = fmt.Sprintf("gate %s: %s", step.Gate, strings.Join(result.Blockers, "; "))
				appendAudit(ws, store.AuditEntry{
					Action: "gate_failed",
					Step:   step.ID,
					Gate:   step.Gate,
					Detail: result.Summary(),
					Actor:  actor,
				})
				return nil
			}
		}

		if step.Reviewer != "" {
			st.Status = store.StatusNeedsReview
			st.Outputs = outputs
			st.LastError = ""
			appendAudit(ws, store.AuditEntry{
				Action: "awaiting_review",
				Step:   step.ID,
				Gate:   step.Gate,
				Detail: fmt.Sprintf("requires approval from %s", step.Reviewer),
				Actor:  actor,
			})
			return nil
		}

		markCompleted(st, outputs)
		appendAudit(ws, store.AuditEntry{
			Action: "step_completed",
			Step:   step.ID,
			Gate:   step.Gate,
			Detail: fmt.Sprintf("%d output file(s) recorded", len(outputs)),
			Actor:  actor,
		})
		return nil
	})
	if err != nil {
		return nil, result, err
	}

	if result != nil {
		m.mirrorGate(ws.Project, result)
	}
	m.mirror(ws.Project, step.ID, string(ws.Steps[step.ID].Status), actor, "")
	return ws, result, nil
}

// Skip marks a pending step skipped. A non-empty reason is required.
func (m *Machine) Skip(stepID, reason, actor string) (*store.WorkflowState, error) {
	step, err := workflow.Lookup(stepID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("skip %s: a reason is required", step.ID)
	}

	ws, err := m.store.Update(func(ws *store.WorkflowState) error {
		st := ws.Steps[step.ID]
		if st.Status != store.StatusPending {
			return fmt.Errorf("skip %s from %s: %w", step.ID, st.Status, ErrInvalidTransition)
		}
		st.Status = store.StatusSkipped
		st.SkipReason = reason
		appendAudit(ws, store.AuditEntry{
			Action: "step_skipped",
			Step:   step.ID,
			Detail: reason,
			Actor:  actor,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.mirror(ws.Project, step.ID, "step_skipped", actor, reason)
	return ws, nil
}

// RecordReview appends an expert review for a step awaiting one. Approval
// completes the step; rejection leaves it at needs_review. The review is
// recorded either way.
func (m *Machine) RecordReview(stepID string, review store.ExpertReview) (*store.WorkflowState, error) {
	step, err := workflow.Lookup(stepID)
	if err != nil {
		return nil, err
	}

	ws, err := m.store.Update(func(ws *store.WorkflowState) error {
		st := ws.Steps[step.ID]
		if st.Status != store.StatusNeedsReview {
			return fmt.Errorf("review %s from %s: %w", step.ID, st.Status, ErrInvalidTransition)
		}

		review.Step = step.ID
		review.CreatedAt = now()
		key := fmt.Sprintf("%s-%s", step.ID, uuid.NewString()[:8])
		ws.Reviews[key] = review

		action := "review_rejected"
		detail := fmt.Sprintf("%s rejected the step", review.Reviewer)
		if review.Approved {
			st.Reviewed = true
			markCompleted(st, st.Outputs)
			action = "review_approved"
			detail = fmt.Sprintf("%s approved the step", review.Reviewer)
		}
		appendAudit(ws, store.AuditEntry{
			Action: action,
			Step:   step.ID,
			Detail: detail,
			Actor:  store.ActorExpert,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.mirror(ws.Project, step.ID, "review_recorded", store.ActorExpert, "")
	return ws, nil
}

// Override completes a blocked step despite its blockers. The override is a
// deliberate, logged human decision and requires a reason.
func (m *Machine) Override(stepID, reason, actor string) (*store.WorkflowState, error) {
	step, err := workflow.Lookup(stepID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("override %s: a reason is required", step.ID)
	}

	ws, err := m.store.Update(func(ws *store.WorkflowState) error {
		st := ws.Steps[step.ID]
		if st.Status != store.StatusBlocked {
			return fmt.Errorf("override %s from %s: %w", step.ID, st.Status, ErrInvalidTransition)
		}
		markCompleted(st, st.Outputs)
		appendAudit(ws, store.AuditEntry{
			Action: "blocker_overridden",
			Step:   step.ID,
			Gate:   step.Gate,
			Detail: reason,
			Actor:  actor,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.mirror(ws.Project, step.ID, "blocker_overridden", actor, reason)
	return ws, nil
}

// CheckGate evaluates one gate, caches the result in the state document,
// and returns it. The step states are not touched.
func (m *Machine) CheckGate(gateID string) (*gates.Result, error) {
	result, err := m.eval.Evaluate(gateID)
	if err != nil {
		return nil, err
	}
	ws, err := m.store.Update(func(ws *store.WorkflowState) error {
		ws.GateResults[gateID] = result
		appendAudit(ws, store.AuditEntry{
			Action: "gate_checked",
			Gate:   gateID,
			Detail: result.Summary(),
			Actor:  store.ActorSystem,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.mirrorGate(ws.Project, result)
	return result, nil
}

func markCompleted(st *store.StepState, outputs []string) {
	st.Status = store.StatusCompleted
	st.CompletedAt = now()
	st.LastError = ""
	if len(outputs) > 0 {
		st.Outputs = outputs
	}
}

func appendAudit(ws *store.WorkflowState, e store.AuditEntry) {
	e.At = now()
	ws.Audit = append(ws.Audit, e)
}

func (m *Machine) mirror(project, step, action, actor, detail string) {
	if m.log == nil {
		return
	}
	_ = m.log.LogTransition(project, step, action, actor, detail)
}

func (m *Machine) mirrorGate(project string, r *gates.Result) {
	if m.log == nil {
		return
	}
	_ = m.log.LogGateRun(project, r.Gate, r.Passed, len(r.Blockers), len(r.Warnings))
}
