package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tunelab/tunelab/internal/project"
)

// resetHelpFlags clears the sticky --help flag that cobra leaves set on the
// shared command tree after a `--help` invocation in an earlier test.
func resetHelpFlags(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}
	for _, sub := range cmd.Commands() {
		resetHelpFlags(sub)
	}
}

func executeCommand(args ...string) (string, error) {
	resetHelpFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// isolateHome keeps the event log and lab config out of the real home dir.
func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"init", "status", "config", "step", "gate", "dataset", "history", "analytics", "serve", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestStepSubcommands(t *testing.T) {
	subcmds := []string{"start", "complete", "skip", "review", "override", "brief", "next"}
	for _, sub := range subcmds {
		out, err := executeCommand("step", sub, "--help")
		if err != nil {
			t.Errorf("step %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("step %s --help produced no output", sub)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeCommand("nonexistent")
	if err == nil {
		t.Error("expected error for unknown command, got nil")
	}
}

func TestGateList(t *testing.T) {
	out, err := executeCommand("gate", "list")
	if err != nil {
		t.Fatalf("gate list: %v", err)
	}
	for _, id := range []string{"strategy_review", "data_quality", "training_complete", "eval_quality", "deploy_readiness"} {
		if !strings.Contains(out, id) {
			t.Errorf("gate list missing %q:\n%s", id, out)
		}
	}
}

func TestInitThenStatus(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	out, err := executeCommand("init", "claims-lab", "--dir", dir, "--domain", "health insurance claims")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "claims-lab") {
		t.Errorf("init output missing project name:\n%s", out)
	}

	root := filepath.Join(dir, "claims-lab")
	for _, sub := range []string{"lab", "research", "data", "adapters"} {
		if _, err := os.Stat(filepath.Join(root, sub)); err != nil {
			t.Errorf("missing scaffolded dir %s: %v", sub, err)
		}
	}

	out, err = executeCommand("status", root)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "research_intake") || !strings.Contains(out, "pending") {
		t.Errorf("status output missing pending first step:\n%s", out)
	}
	if !strings.Contains(out, "[execute]") {
		t.Errorf("status output missing next action:\n%s", out)
	}
}

func TestStepStartAndSkip(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	if _, err := executeCommand("init", "flow", "--dir", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	root := filepath.Join(dir, "flow")

	if _, err := executeCommand("step", "start", root, "research_intake"); err != nil {
		t.Fatalf("step start: %v", err)
	}
	if _, err := executeCommand("step", "complete", root, "research_intake",
		"--output", "research/dossier.md"); err != nil {
		t.Fatalf("step complete: %v", err)
	}

	// skipping without a reason is refused
	if _, err := executeCommand("step", "skip", root, "strategic_analysis"); err == nil {
		t.Error("expected skip without --reason to fail")
	}
	if _, err := executeCommand("step", "skip", root, "strategic_analysis",
		"--reason", "strategy fixed upfront"); err != nil {
		t.Fatalf("step skip: %v", err)
	}

	out, err := executeCommand("status", root)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "skipped") {
		t.Errorf("status missing skipped step:\n%s", out)
	}
}

func TestStepStartOutOfOrder(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	if _, err := executeCommand("init", "ooo", "--dir", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	root := filepath.Join(dir, "ooo")

	if _, err := executeCommand("step", "start", root, "run_training"); err == nil {
		t.Error("expected out-of-order start to fail")
	}
}

func TestDatasetValidateCommand(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	lines := []string{
		`{"instruction": "Classify the claim", "output": "approved"}`,
		`{"instruction": "Summarize the denial letter", "output": "The claim was denied for lack of coverage."}`,
	}
	if err := os.WriteFile(filepath.Join(dir, "train.jsonl"),
		[]byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand("dataset", "validate", dir)
	if err != nil {
		t.Fatalf("dataset validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Examples:") {
		t.Errorf("validate output missing sample count:\n%s", out)
	}

	// a broken file makes the command exit non-zero
	if err := os.WriteFile(filepath.Join(dir, "bad.jsonl"), []byte("{not json}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := executeCommand("dataset", "validate", dir); err == nil {
		t.Error("expected validation of broken file to fail")
	}
}

func TestDatasetRegisterCommand(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	if _, err := executeCommand("init", "reg", "--dir", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	root := filepath.Join(dir, "reg")

	data := filepath.Join(root, "data", "processed")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	lines := []string{
		`{"instruction": "Classify the claim", "output": "approved"}`,
		`{"instruction": "Summarize the denial letter", "output": "The claim was denied."}`,
	}
	if err := os.WriteFile(filepath.Join(data, "train.jsonl"),
		[]byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand("dataset", "register", root, data)
	if err != nil {
		t.Fatalf("dataset register: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Registered") {
		t.Errorf("register output missing confirmation:\n%s", out)
	}

	m, err := project.ReadManifest(root)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(m.Datasets) != 1 {
		t.Fatalf("expected 1 dataset in manifest, got %d", len(m.Datasets))
	}
	d := m.Datasets[0]
	if d.Path != filepath.Join("data", "processed") {
		t.Errorf("expected project-relative path, got %q", d.Path)
	}
	if d.SampleCount != 2 {
		t.Errorf("expected sample count 2, got %d", d.SampleCount)
	}
	if d.SizeBytes == 0 {
		t.Error("expected non-zero size")
	}
	if d.Format != "jsonl" {
		t.Errorf("expected format jsonl, got %q", d.Format)
	}
	if !d.Validated {
		t.Error("clean dataset should register as validated")
	}

	// registering the same path again updates in place
	if _, err := executeCommand("dataset", "register", root, data); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	m, err = project.ReadManifest(root)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(m.Datasets) != 1 {
		t.Errorf("re-registering should upsert, got %d datasets", len(m.Datasets))
	}
}

func TestConfigValidateCommand(t *testing.T) {
	isolateHome(t)
	t.Cleanup(func() { configFile = "" })

	out, err := executeCommand("config", "validate")
	if err != nil {
		t.Fatalf("config validate with defaults: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration is valid.") {
		t.Errorf("expected valid message, got:\n%s", out)
	}

	bad := filepath.Join(t.TempDir(), "lab.yaml")
	content := "lab:\n  port: 99999\n  mode: freestyle\n  gates:\n    no_such_gate:\n      coverage: 1\n"
	if err := os.WriteFile(bad, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = executeCommand("config", "validate", "--file", bad)
	if err == nil {
		t.Fatalf("expected invalid config to fail:\n%s", out)
	}
	if !strings.Contains(out, "Validation errors:") {
		t.Errorf("expected error listing, got:\n%s", out)
	}
	for _, want := range []string{"lab.port", "lab.mode", "no_such_gate"} {
		if !strings.Contains(out, want) {
			t.Errorf("validation output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowCommand(t *testing.T) {
	isolateHome(t)
	t.Cleanup(func() { configFile = "" })

	out, err := executeCommand("config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "port:") || !strings.Contains(out, "mode:") {
		t.Errorf("show output missing resolved defaults:\n%s", out)
	}
}

func TestStepBrief(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	if _, err := executeCommand("init", "briefed", "--dir", dir, "--domain", "radiology notes"); err != nil {
		t.Fatalf("init: %v", err)
	}
	root := filepath.Join(dir, "briefed")

	out, err := executeCommand("step", "brief", root, "research_intake")
	if err != nil {
		t.Fatalf("step brief: %v", err)
	}
	if !strings.Contains(out, "radiology notes") {
		t.Errorf("brief missing domain:\n%s", out)
	}
}

func TestGateCheckFailsClosed(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	if _, err := executeCommand("init", "gated", "--dir", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	root := filepath.Join(dir, "gated")

	// no artifacts yet: the gate must fail and the command exit non-zero
	out, err := executeCommand("gate", "check", root, "data_quality")
	if err == nil {
		t.Errorf("expected gate check to fail with no artifacts:\n%s", out)
	}
	if !strings.Contains(out, "FAIL") {
		t.Errorf("gate check output missing FAIL marker:\n%s", out)
	}

	if _, err := executeCommand("gate", "check", root, "no_such_gate"); err == nil {
		t.Error("expected unknown gate to error")
	}
}
