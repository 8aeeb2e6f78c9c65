// Package project owns the per-project documents next to the workflow
// state: project configuration, artifact manifest, and the training status
// record written by the external training job. It also scaffolds the
// initial directory layout for new projects.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tunelab/tunelab/internal/store"
)

// Hardware describes the deployment target for the tuned model.
type Hardware struct {
	Type         string `json:"type"`
	MinMemoryGB  int    `json:"min_memory_gb"`
	Quantization string `json:"quantization"`
}

// Config is the project configuration document (lab/project.json).
type Config struct {
	Domain    string   `json:"domain"`
	Languages []string `json:"languages,omitempty"`
	UseCases  []string `json:"use_cases,omitempty"`
	BaseModel string   `json:"base_model"`
	Hardware  Hardware `json:"hardware"`
}

// Dataset describes one registered dataset in the manifest.
type Dataset struct {
	Path        string `json:"path"`
	Format      string `json:"format"` // "jsonl", "json", "txt", "csv"
	SampleCount int    `json:"sample_count"`
	SizeBytes   int64  `json:"size_bytes"`
	Validated   bool   `json:"validated"`
}

// Model describes one trained model artifact in the manifest.
type Model struct {
	Path        string             `json:"path"`
	BaseModel   string             `json:"base_model"`
	Checkpoint  string             `json:"checkpoint"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Deployed    bool               `json:"deployed"`
	RegistryURL string             `json:"registry_url,omitempty"`
}

// Manifest is the artifact manifest document (lab/manifest.json).
type Manifest struct {
	Datasets []Dataset `json:"datasets"`
	Models   []Model   `json:"models"`
}

// TrainingStatus is the polling record written by the external training
// process (lab/training_status.json). The lab surfaces it verbatim and
// never interprets it.
type TrainingStatus struct {
	Running      bool    `json:"running"`
	Step         int     `json:"step"`
	TotalSteps   int     `json:"total_steps"`
	Epoch        int     `json:"epoch"`
	TotalEpochs  int     `json:"total_epochs"`
	Loss         float64 `json:"loss"`
	LearningRate float64 `json:"learning_rate"`
	ETASeconds   int     `json:"eta_seconds"`
	Error        string  `json:"error,omitempty"`
}

// layout is the directory skeleton created for new projects.
var layout = []string{
	"research",
	"data",
	"reports",
	"training",
	"adapters",
	"deploy",
	store.DocDir,
}

// InitOpts configures project initialization.
type InitOpts struct {
	Name      string
	Domain    string
	BaseModel string
	Mode      string
}

// Init scaffolds a new project under root: the directory layout, the three
// documents, and a workflow state with every step pending.
func Init(root string, opts InitOpts) (*store.WorkflowState, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if opts.Mode == "" {
		opts.Mode = "guided"
	}
	if opts.BaseModel == "" {
		opts.BaseModel = "google/gemma-3-4b-it"
	}

	for _, dir := range layout {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	cfg := &Config{
		Domain:    opts.Domain,
		BaseModel: opts.BaseModel,
		Hardware:  Hardware{Type: "cpu", MinMemoryGB: 16, Quantization: "q4"},
	}
	if err := WriteConfig(root, cfg); err != nil {
		return nil, err
	}
	if err := WriteManifest(root, &Manifest{Datasets: []Dataset{}, Models: []Model{}}); err != nil {
		return nil, err
	}
	if err := WriteTrainingStatus(root, &TrainingStatus{}); err != nil {
		return nil, err
	}

	ws, err := store.NewStore(root).Create(opts.Name, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("create workflow state: %w", err)
	}
	return ws, nil
}

func configPath(root string) string {
	return filepath.Join(root, store.DocDir, "project.json")
}

func manifestPath(root string) string {
	return filepath.Join(root, store.DocDir, "manifest.json")
}

func trainingStatusPath(root string) string {
	return filepath.Join(root, store.DocDir, "training_status.json")
}

// ReadConfig loads the project configuration document.
func ReadConfig(root string) (*Config, error) {
	var cfg Config
	if err := store.ReadJSON(configPath(root), &cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project config at %s: %w", root, store.ErrNotFound)
		}
		return nil, err
	}
	return &cfg, nil
}

// WriteConfig replaces the project configuration document.
func WriteConfig(root string, cfg *Config) error {
	return store.WriteJSON(configPath(root), cfg)
}

// ReadManifest loads the artifact manifest. A missing document is an empty
// manifest, not an error: datasets are registered lazily.
func ReadManifest(root string) (*Manifest, error) {
	var m Manifest
	if err := store.ReadJSON(manifestPath(root), &m); err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, err
	}
	return &m, nil
}

// WriteManifest replaces the artifact manifest document.
func WriteManifest(root string, m *Manifest) error {
	return store.WriteJSON(manifestPath(root), m)
}

// RegisterDataset appends or updates a dataset entry, keyed by path.
func RegisterDataset(root string, d Dataset) (*Manifest, error) {
	m, err := ReadManifest(root)
	if err != nil {
		return nil, err
	}
	replaced := false
	for i := range m.Datasets {
		if m.Datasets[i].Path == d.Path {
			m.Datasets[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		m.Datasets = append(m.Datasets, d)
	}
	if err := WriteManifest(root, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterModel appends or updates a model entry, keyed by path.
func RegisterModel(root string, mod Model) (*Manifest, error) {
	m, err := ReadManifest(root)
	if err != nil {
		return nil, err
	}
	replaced := false
	for i := range m.Models {
		if m.Models[i].Path == mod.Path {
			m.Models[i] = mod
			replaced = true
			break
		}
	}
	if !replaced {
		m.Models = append(m.Models, mod)
	}
	if err := WriteManifest(root, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadTrainingStatus loads the training status record. Absent means no
// training has been started yet.
func ReadTrainingStatus(root string) (*TrainingStatus, error) {
	var ts TrainingStatus
	if err := store.ReadJSON(trainingStatusPath(root), &ts); err != nil {
		if os.IsNotExist(err) {
			return &TrainingStatus{}, nil
		}
		return nil, err
	}
	return &ts, nil
}

// WriteTrainingStatus replaces the training status record. Normally only
// the external training process writes this.
func WriteTrainingStatus(root string, ts *TrainingStatus) error {
	return store.WriteJSON(trainingStatusPath(root), ts)
}
