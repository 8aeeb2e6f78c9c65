package state

import (
	"fmt"

	"github.com/tunelab/tunelab/internal/store"
	"github.com/tunelab/tunelab/internal/workflow"
)

// Action kinds returned by NextAction, in surfacing priority order.
const (
	ActionAllComplete = "all_complete"
	ActionReview      = "await_review"
	ActionFixBlocker  = "fix_blocker"
	ActionExecute     = "execute"
	ActionContinue    = "continue"
)

// Action tells the operator what to work on next.
type Action struct {
	Kind    string `json:"kind"`
	Step    string `json:"step,omitempty"`
	Gate    string `json:"gate,omitempty"`
	Message string `json:"message"`
}

// NextAction derives the next piece of work from the whole state document.
// It is a pure query: reviews and blockers surface before new work, and the
// current-step pointer is never trusted over the per-step statuses.
func NextAction(ws *store.WorkflowState) Action {
	allDone := true
	for _, step := range workflow.All() {
		st := ws.Steps[step.ID]
		if st.Status != store.StatusCompleted && st.Status != store.StatusSkipped {
			allDone = false
			break
		}
	}
	if allDone {
		return Action{Kind: ActionAllComplete, Message: "all steps completed or skipped"}
	}

	for _, step := range workflow.All() {
		if ws.Steps[step.ID].Status == store.StatusNeedsReview {
			return Action{
				Kind:    ActionReview,
				Step:    step.ID,
				Message: fmt.Sprintf("%s awaits approval from %s", step.Name, step.Reviewer),
			}
		}
	}

	for _, step := range workflow.All() {
		if ws.Steps[step.ID].Status == store.StatusBlocked {
			return Action{
				Kind:    ActionFixBlocker,
				Step:    step.ID,
				Gate:    step.Gate,
				Message: fmt.Sprintf("%s is blocked by gate %s; fix the blockers and complete again", step.Name, step.Gate),
			}
		}
	}

	for _, step := range workflow.All() {
		if ws.Steps[step.ID].Status != store.StatusPending {
			continue
		}
		if prev, ok, _ := workflow.Prev(step.ID); ok {
			ps := ws.Steps[prev.ID]
			if ps.Status != store.StatusCompleted && ps.Status != store.StatusSkipped {
				continue
			}
		}
		return Action{
			Kind:    ActionExecute,
			Step:    step.ID,
			Gate:    step.Gate,
			Message: fmt.Sprintf("ready to start %s", step.Name),
		}
	}

	// Nothing pending is ready: point at the in-progress step rather than
	// trusting the separately-mutated current pointer.
	for _, step := range workflow.All() {
		if ws.Steps[step.ID].Status == store.StatusInProgress {
			return Action{
				Kind:    ActionContinue,
				Step:    step.ID,
				Message: fmt.Sprintf("continue work on %s", step.Name),
			}
		}
	}
	return Action{
		Kind:    ActionContinue,
		Step:    ws.CurrentStep,
		Message: fmt.Sprintf("continue work on %s", ws.CurrentStep),
	}
}
