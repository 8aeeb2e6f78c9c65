package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a lab configuration from the given YAML file path.
// After parsing, defaults are applied to unset fields.
func Load(path string) (*LabConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg LabConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a lab config in standard locations and loads the
// first one found. Search order: ./lab.yaml, ~/.tunelab/config.yaml.
// When none exists, a config with defaults is returned.
func LoadDefault() (*LabConfig, error) {
	candidates := []string{"lab.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".tunelab", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &LabConfig{}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *LabConfig) {
	l := &cfg.Lab
	if l.Port == 0 {
		l.Port = 8080
	}
	if l.Mode == "" {
		l.Mode = "guided"
	}
	if l.Actor == "" {
		l.Actor = "user"
	}
	if l.Gates == nil {
		l.Gates = make(map[string]map[string]float64)
	}
}
