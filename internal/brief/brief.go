// Package brief renders the per-step agent briefs: the instructions handed
// to whoever (human or agent) executes a workflow step. Built-in briefs
// cover every catalogue step; a project can override any of them with a
// briefs/<step>.md file in its root.
package brief

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tunelab/tunelab/internal/project"
	"github.com/tunelab/tunelab/internal/store"
	"github.com/tunelab/tunelab/internal/workflow"
)

// OverrideDir is the project subdirectory searched for brief overrides.
const OverrideDir = "briefs"

// Build renders the brief for one step of an initialized project.
func Build(root, stepID string) (string, error) {
	step, err := workflow.Lookup(stepID)
	if err != nil {
		return "", err
	}

	cfg, err := project.ReadConfig(root)
	if err != nil {
		return "", fmt.Errorf("read project config: %w", err)
	}
	ws, err := store.NewStore(root).Get()
	if err != nil {
		return "", err
	}

	tmpl, err := load(root, step.ID)
	if err != nil {
		return "", err
	}

	vars := Vars{
		"project":      ws.Project,
		"root":         root,
		"mode":         ws.Mode,
		"domain":       cfg.Domain,
		"base_model":   cfg.BaseModel,
		"hardware":     cfg.Hardware.Type,
		"quantization": cfg.Hardware.Quantization,
		"reviewer":     step.Reviewer,
		"gate":         step.Gate,
		"mode_guided":  "",
	}
	if ws.Mode == "guided" {
		vars["mode_guided"] = "yes"
	}
	return Render(tmpl, vars)
}

// load returns the project override for a step's brief, or the built-in.
func load(root, stepID string) (string, error) {
	override := filepath.Join(root, OverrideDir, stepID+".md")
	if data, err := os.ReadFile(override); err == nil {
		return string(data), nil
	}
	tmpl, ok := builtinBriefs[stepID]
	if !ok {
		return "", fmt.Errorf("no brief for step %q", stepID)
	}
	return tmpl, nil
}
