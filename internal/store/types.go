package store

import "github.com/tunelab/tunelab/internal/gates"

// Status is the lifecycle status of one step within a project.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusNeedsReview Status = "needs_review"
	StatusCompleted   Status = "completed"
	StatusBlocked     Status = "blocked"
	StatusSkipped     Status = "skipped"
)

// Actor tags who drove a transition.
const (
	ActorSystem = "system"
	ActorUser   = "user"
	ActorExpert = "expert"
)

// StepState is the mutable execution state of one catalogue step.
type StepState struct {
	Status      Status   `json:"status"`
	StartedAt   string   `json:"started_at,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
	Outputs     []string `json:"outputs,omitempty"`
	Reviewed    bool     `json:"reviewed,omitempty"`
	LastError   string   `json:"last_error,omitempty"`
	SkipReason  string   `json:"skip_reason,omitempty"`
}

// ExpertReview is a human approval record, immutable once written. New
// reviews for the same step are appended under fresh keys.
type ExpertReview struct {
	Reviewer  string `json:"reviewer"`
	Step      string `json:"step"`
	Approved  bool   `json:"approved"`
	Comments  string `json:"comments,omitempty"`
	CreatedAt string `json:"created_at"`
}

// AuditEntry records one state transition. The audit list is append-only.
type AuditEntry struct {
	At     string `json:"at"`
	Action string `json:"action"`
	Step   string `json:"step,omitempty"`
	Gate   string `json:"gate,omitempty"`
	Detail string `json:"detail,omitempty"`
	Actor  string `json:"actor"`
}

// WorkflowState is the single persisted document tracking a project's
// progress through the step catalogue. The state machine is its only writer.
type WorkflowState struct {
	Project     string                   `json:"project"`
	Version     int                      `json:"version"`
	Mode        string                   `json:"mode"` // "guided" or "auto"
	CurrentStep string                   `json:"current_step,omitempty"`
	Steps       map[string]*StepState    `json:"steps"`
	GateResults map[string]*gates.Result `json:"gate_results,omitempty"`
	Reviews     map[string]ExpertReview  `json:"reviews,omitempty"`
	Audit       []AuditEntry             `json:"audit"`
	CreatedAt   string                   `json:"created_at"`
	UpdatedAt   string                   `json:"updated_at"`
}
