package gates

import (
	"encoding/json"
	"fmt"
)

// Result is the structured outcome of evaluating one gate. It is recomputed
// on every check; the copy cached in the workflow state is not authoritative.
type Result struct {
	Gate      string             `json:"gate"`
	Passed    bool               `json:"passed"`
	Message   string             `json:"message"`
	Blockers  []string           `json:"blockers,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	CheckedAt string             `json:"checked_at"`
}

// JSON returns the result as indented JSON.
func (r *Result) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Summary returns a one-line human summary of the result.
func (r *Result) Summary() string {
	if r.Passed {
		if len(r.Warnings) > 0 {
			return fmt.Sprintf("passed with %d warning(s)", len(r.Warnings))
		}
		return "passed"
	}
	return fmt.Sprintf("%d blocker(s)", len(r.Blockers))
}
