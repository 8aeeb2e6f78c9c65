// Package workflow holds the static step catalogue for a fine-tuning lab
// project. The catalogue is fixed at compile time; all functions are pure
// lookups and safe for concurrent readers.
package workflow

import "fmt"

// ErrNotFound is returned when a step or phase id is not in the catalogue.
var ErrNotFound = fmt.Errorf("not found")

// Step is one unit of pipeline work. Steps are immutable; per-project
// execution state lives in store.StepState.
type Step struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Phase       string   `json:"phase"`
	Agent       string   `json:"agent"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs,omitempty"`
	Outputs     []string `json:"outputs,omitempty"`
	Gate        string   `json:"gate,omitempty"`     // gate id, empty = ungated
	Reviewer    string   `json:"reviewer,omitempty"` // required reviewer role, empty = none
}

// Phase groups consecutive steps into one stage of the pipeline.
type Phase struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var phases = []Phase{
	{ID: "discovery", Name: "Discovery", Description: "Research the target domain and set the training objective"},
	{ID: "collection", Name: "Collection", Description: "Gather or generate raw domain data"},
	{ID: "preparation", Name: "Preparation", Description: "Convert and validate the training dataset"},
	{ID: "training", Name: "Training", Description: "Configure and run the fine-tuning job on external hardware"},
	{ID: "evaluation", Name: "Evaluation", Description: "Measure the tuned model against the base model"},
	{ID: "deployment", Name: "Deployment", Description: "Package and ship the tuned adapter"},
}

var steps = []Step{
	{
		ID:          "research_intake",
		Name:        "Research Intake",
		Phase:       "discovery",
		Agent:       "researcher",
		Description: "Compile a research dossier on the target organization or domain",
		Outputs:     []string{"research/dossier.txt"},
	},
	{
		ID:          "strategic_analysis",
		Name:        "Strategic Analysis",
		Phase:       "discovery",
		Agent:       "analyst",
		Description: "Distill the dossier into a strategy report with a training objective",
		Inputs:      []string{"research/dossier.txt"},
		Outputs:     []string{"reports/strategy_report.md"},
		Gate:        "strategy_review",
		Reviewer:    "domain_expert",
	},
	{
		ID:          "generate_raw_data",
		Name:        "Generate Raw Data",
		Phase:       "collection",
		Agent:       "data_engineer",
		Description: "Generate or collect raw domain records",
		Inputs:      []string{"reports/strategy_report.md"},
		Outputs:     []string{"data/raw_claims.jsonl"},
	},
	{
		ID:          "register_dataset",
		Name:        "Register Dataset",
		Phase:       "collection",
		Agent:       "data_engineer",
		Description: "Register the raw dataset in the artifact manifest",
		Inputs:      []string{"data/raw_claims.jsonl"},
	},
	{
		ID:          "prepare_training_data",
		Name:        "Prepare Training Data",
		Phase:       "preparation",
		Agent:       "data_engineer",
		Description: "Convert raw records into instruction-tuning examples",
		Inputs:      []string{"data/raw_claims.jsonl"},
		Outputs:     []string{"data/training_data.jsonl"},
	},
	{
		ID:          "validate_dataset",
		Name:        "Validate Dataset",
		Phase:       "preparation",
		Agent:       "data_engineer",
		Description: "Audit the training dataset and write the data quality report",
		Inputs:      []string{"data/training_data.jsonl"},
		Outputs:     []string{"reports/data_audit.md"},
		Gate:        "data_quality",
	},
	{
		ID:          "configure_training",
		Name:        "Configure Training",
		Phase:       "training",
		Agent:       "ml_engineer",
		Description: "Write the training job configuration for the external runner",
		Inputs:      []string{"data/training_data.jsonl"},
		Outputs:     []string{"training/config.json"},
	},
	{
		ID:          "run_training",
		Name:        "Run Training",
		Phase:       "training",
		Agent:       "ml_engineer",
		Description: "Execute the fine-tuning job (external hardware) and collect artifacts",
		Inputs:      []string{"training/config.json"},
		Outputs:     []string{"adapters", "training/log.txt"},
		Gate:        "training_complete",
	},
	{
		ID:          "evaluate_model",
		Name:        "Evaluate Model",
		Phase:       "evaluation",
		Agent:       "ml_engineer",
		Description: "Compare the tuned adapter against the base model and write the eval report",
		Inputs:      []string{"adapters"},
		Outputs:     []string{"reports/eval_report.md"},
		Gate:        "eval_quality",
		Reviewer:    "ml_engineer",
	},
	{
		ID:          "deploy_model",
		Name:        "Deploy Model",
		Phase:       "deployment",
		Agent:       "ml_engineer",
		Description: "Package the adapter for the target hardware and document rollout",
		Inputs:      []string{"adapters", "reports/eval_report.md"},
		Outputs:     []string{"deploy/deploy.md"},
		Gate:        "deploy_readiness",
	},
}

var stepIndex = func() map[string]int {
	m := make(map[string]int, len(steps))
	for i, s := range steps {
		m[s.ID] = i
	}
	return m
}()

// All returns every step in execution order.
func All() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Phases returns the phases in pipeline order.
func Phases() []Phase {
	out := make([]Phase, len(phases))
	copy(out, phases)
	return out
}

// Lookup returns the step with the given id.
func Lookup(id string) (Step, error) {
	i, ok := stepIndex[id]
	if !ok {
		return Step{}, fmt.Errorf("step %q: %w", id, ErrNotFound)
	}
	return steps[i], nil
}

// ByPhase returns the steps belonging to a phase, in execution order.
func ByPhase(phase string) []Step {
	var out []Step
	for _, s := range steps {
		if s.Phase == phase {
			out = append(out, s)
		}
	}
	return out
}

// Next returns the step immediately following id, or ok=false at the end
// of the sequence.
func Next(id string) (Step, bool, error) {
	i, found := stepIndex[id]
	if !found {
		return Step{}, false, fmt.Errorf("step %q: %w", id, ErrNotFound)
	}
	if i+1 >= len(steps) {
		return Step{}, false, nil
	}
	return steps[i+1], true, nil
}

// Prev returns the step immediately preceding id, or ok=false at the start.
func Prev(id string) (Step, bool, error) {
	i, found := stepIndex[id]
	if !found {
		return Step{}, false, fmt.Errorf("step %q: %w", id, ErrNotFound)
	}
	if i == 0 {
		return Step{}, false, nil
	}
	return steps[i-1], true, nil
}
