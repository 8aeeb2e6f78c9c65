package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lab.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "lab: {}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Lab.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Lab.Port)
	}
	if cfg.Lab.Mode != "guided" {
		t.Errorf("Mode = %q, want guided", cfg.Lab.Mode)
	}
	if cfg.Lab.Actor != "user" {
		t.Errorf("Actor = %q, want user", cfg.Lab.Actor)
	}
	if cfg.Lab.Gates == nil {
		t.Error("Gates map should be allocated")
	}
}

func TestLoadGateOverrides(t *testing.T) {
	path := writeConfig(t, `lab:
  port: 9090
  mode: auto
  gates:
    data_quality:
      sample_count: 300
      coverage: 70
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Lab.Port != 9090 {
		t.Errorf("Port = %d", cfg.Lab.Port)
	}
	if cfg.Lab.Gates["data_quality"]["sample_count"] != 300 {
		t.Errorf("override = %v", cfg.Lab.Gates["data_quality"])
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "lab: [not a map\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := &LabConfig{}
	applyDefaults(cfg)
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("default config should validate, got %v", errs)
	}

	cfg.Lab.Port = -1
	cfg.Lab.Mode = "yolo"
	cfg.Lab.Gates = map[string]map[string]float64{"no_such_gate": {"x": 1}}
	errs := Validate(cfg)
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
}

func TestValidateKnownGates(t *testing.T) {
	cfg := &LabConfig{}
	applyDefaults(cfg)
	cfg.Lab.Gates = map[string]map[string]float64{
		"data_quality": {"sample_count": 500},
		"eval_quality": {"agreement": 90},
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("got %v, want no errors", errs)
	}
}
