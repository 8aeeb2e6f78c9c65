package config

// LabConfig is the top-level configuration structure parsed from lab YAML.
type LabConfig struct {
	Lab Lab `yaml:"lab"`
}

// Lab holds tool-wide settings and per-gate policy overrides.
type Lab struct {
	Port  int    `yaml:"port"`
	Mode  string `yaml:"mode"`  // default execution mode for new projects
	Actor string `yaml:"actor"` // actor tag recorded on CLI-driven transitions
	// Gates maps gate id to metric name to threshold override. The rule
	// shape is fixed; only the numeric policy values are tunable.
	Gates map[string]map[string]float64 `yaml:"gates"`
}
