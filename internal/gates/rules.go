package gates

// registry is the closed set of gate rules, one per gate id referenced by
// the workflow catalogue. Thresholds here are defaults; per-project config
// can override the numeric values but not the rule shape.
var registry = map[string]Rule{
	"strategy_review": {
		Gate: "strategy_review",
		Artifacts: []string{
			"research/dossier.txt",
			"reports/strategy_report.md",
		},
		Keywords: []Keyword{
			{Artifact: "reports/strategy_report.md", Word: "true north", Blocker: true,
				Message: "strategy report does not state a True North objective"},
			{Artifact: "reports/strategy_report.md", Word: "recommendation", Blocker: true,
				Message: "strategy report has no recommendation section"},
			{Artifact: "reports/strategy_report.md", Word: "approved", Blocker: true,
				Message: "strategy report lacks an explicit approval marker"},
			{Artifact: "reports/strategy_report.md", Word: "risk",
				Message: "strategy report has no risk section"},
		},
		Thresholds: []Threshold{
			{Metric: "use_case_coverage", Artifact: "reports/strategy_report.md", Op: ">=", Value: 3},
		},
	},

	"data_quality": {
		Gate: "data_quality",
		Artifacts: []string{
			"data/training_data.jsonl",
			"reports/data_audit.md",
		},
		Keywords: []Keyword{
			{Artifact: "reports/data_audit.md", Word: "leakage",
				Message: "data audit does not mention a leakage check"},
		},
		Thresholds: []Threshold{
			{Metric: "sample_count", Artifact: "reports/data_audit.md", Op: ">=", Value: 1000},
			{Metric: "coverage", Artifact: "reports/data_audit.md", Op: ">=", Value: 80},
			{Metric: "format_errors", Artifact: "reports/data_audit.md", Op: "==", Value: 0},
			{Metric: "duplicate_rate", Artifact: "reports/data_audit.md", Op: "<=", Value: 5, Optional: true},
		},
	},

	"training_complete": {
		Gate: "training_complete",
		Artifacts: []string{
			"adapters",
			"training/log.txt",
		},
		Thresholds: []Threshold{
			{Metric: "final_loss", Artifact: "training/log.txt", Op: "<=", Value: 2.0},
			{Metric: "epochs", Artifact: "training/log.txt", Op: ">=", Value: 1},
			{Metric: "eval_loss", Artifact: "training/log.txt", Op: "<=", Value: 2.5, Optional: true},
		},
		Inspect: func(a *ArtifactSet, r *Result) {
			entries, err := a.DirEntries("adapters")
			if err != nil || len(entries) == 0 {
				r.Blockers = append(r.Blockers, "no adapter checkpoints found in adapters/")
			}
		},
	},

	"eval_quality": {
		Gate: "eval_quality",
		Artifacts: []string{
			"reports/eval_report.md",
		},
		Keywords: []Keyword{
			{Artifact: "reports/eval_report.md", Word: "verdict", Blocker: true,
				Message: "eval report has no verdict section"},
			{Artifact: "reports/eval_report.md", Word: "baseline",
				Message: "eval report does not compare against the baseline model"},
		},
		Thresholds: []Threshold{
			{Metric: "agreement", Artifact: "reports/eval_report.md", Op: ">=", Value: 85},
			{Metric: "regression_count", Artifact: "reports/eval_report.md", Op: "==", Value: 0, Optional: true},
		},
	},

	"deploy_readiness": {
		Gate: "deploy_readiness",
		Artifacts: []string{
			"deploy/deploy.md",
			"adapters",
		},
		Keywords: []Keyword{
			{Artifact: "deploy/deploy.md", Word: "rollback", Blocker: true,
				Message: "deployment doc has no rollback plan"},
			{Artifact: "deploy/deploy.md", Word: "monitoring",
				Message: "deployment doc does not cover monitoring"},
		},
		Thresholds: []Threshold{
			{Metric: "quantized", Artifact: "deploy/deploy.md", Op: "==", Value: 1},
		},
	},
}
