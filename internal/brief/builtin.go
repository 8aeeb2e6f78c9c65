package brief

// builtinBriefs maps step id to its built-in agent brief. A project can
// override any of these by placing briefs/<step>.md in its root.
var builtinBriefs = map[string]string{
	"research_intake":       researchIntakeBrief,
	"strategic_analysis":    strategicAnalysisBrief,
	"generate_raw_data":     generateRawDataBrief,
	"register_dataset":      registerDatasetBrief,
	"prepare_training_data": prepareTrainingDataBrief,
	"validate_dataset":      validateDatasetBrief,
	"configure_training":    configureTrainingBrief,
	"run_training":          runTrainingBrief,
	"evaluate_model":        evaluateModelBrief,
	"deploy_model":          deployModelBrief,
}

const researchIntakeBrief = `# Research Intake — {{project}}

Research the target domain and produce a dossier the strategy step can
build on.

Domain: {{domain}}
Base model: {{base_model}}

## Deliverables
Write research/dossier.txt covering:
1. The vocabulary, document types, and decision rules of the domain
2. Public data sources and their licensing
3. Tasks the tuned model must handle, with input/output examples
4. Known pitfalls (ambiguity, regional variation, PII exposure)
{{#if mode_guided}}
Stop after the dossier is written; do not start the strategy report.
{{/if}}`

const strategicAnalysisBrief = `# Strategic Analysis — {{project}}

Turn the research dossier into a training strategy.

Inputs: research/dossier.txt
Domain: {{domain}}

## Deliverables
Write reports/strategy_report.md covering:
1. True North: the single objective the tuned model optimizes for
2. Recommendation: which tasks to fine-tune for, and why, with a
   use_case_coverage count
3. Dataset shape: instruction/output schema, size target, eval split
4. Risk section: what could go wrong and how evaluation will catch it

The strategy_review gate checks for these sections; the report then
goes to a {{reviewer}} for sign-off before any data work begins.`

const generateRawDataBrief = `# Generate Raw Data — {{project}}

Produce raw domain documents under data/ following the strategy report.

Inputs: reports/strategy_report.md
Domain: {{domain}}

## Rules
- Synthetic documents must be realistic but never copied from real
  records; no real names, member ids, or provider ids
- Vary the document structure the way real-world sources do
- Name eval files with an "eval" marker so the split survives conversion`

const registerDatasetBrief = `# Register Dataset — {{project}}

Record the raw dataset in the project manifest so later steps can find
it.

Run: tunelab dataset validate <data-dir> --report {{root}}
Then register the folder in lab/manifest.json with its format and
sample count.`

const prepareTrainingDataBrief = `# Prepare Training Data — {{project}}

Convert the raw documents into instruction-tuning examples.

Target schema: one JSON object per line with "instruction", optional
"input", and "output" fields.
Base model: {{base_model}}

## Rules
- Every example must carry a non-empty output
- Keep the train/eval split from the raw data; never move an eval
  document into train
- Deduplicate near-identical examples before writing`

const validateDatasetBrief = `# Validate Dataset — {{project}}

Audit the prepared dataset and write the data audit report.

Run: tunelab dataset validate <data-dir> --report {{root}}

The data_quality gate reads reports/data_audit.md. Fix format errors
and leakage before completing this step; the gate blocks on them.`

const configureTrainingBrief = `# Configure Training — {{project}}

Write the training configuration under training/.

Base model: {{base_model}}
Target hardware: {{hardware}} ({{quantization}})

## Deliverables
training/config.json with base model, LoRA rank, learning rate,
epochs, and the dataset paths from the manifest. The training job
itself runs on external hardware; this step only prepares its inputs.`

const runTrainingBrief = `# Run Training — {{project}}

Hand the training config to the external training job and track it.

The job writes lab/training_status.json while it runs and
training/log.txt when it finishes; adapters land under
adapters/. The training_complete gate reads final_loss and epochs from
the log and requires at least one adapter checkpoint, so do not
complete this step until both exist.`

const evaluateModelBrief = `# Evaluate Model — {{project}}

Compare the tuned model against {{base_model}} on the eval split.

## Deliverables
Write reports/eval_report.md covering:
1. agreement: % of eval examples where the tuned model matches the
   expected output
2. regression_count: eval examples the base model got right and the
   tuned model gets wrong
3. Baseline comparison and side-by-side samples for the {{reviewer}}
   review
4. A verdict section: ship, iterate, or abandon

The eval_quality gate reads the metrics and the verdict from this
report.`

const deployModelBrief = `# Deploy Model — {{project}}

Package the tuned adapter for {{hardware}} deployment.

## Deliverables
Write deploy/deploy.md covering:
1. quantized: 1 once the {{quantization}} artifact is built under
   deploy/
2. The rollback procedure back to the base model
3. Monitoring: what to watch after rollout
4. Registry URL once pushed; register the model in lab/manifest.json`
