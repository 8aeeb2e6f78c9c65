package config

import (
	"fmt"

	"github.com/tunelab/tunelab/internal/gates"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var recognizedModes = map[string]bool{
	"guided": true,
	"auto":   true,
}

// Validate checks a LabConfig for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *LabConfig) []ValidationError {
	var errs []ValidationError
	l := cfg.Lab

	if l.Port < 1 || l.Port > 65535 {
		errs = append(errs, ValidationError{Field: "lab.port", Message: fmt.Sprintf("invalid port %d", l.Port)})
	}
	if !recognizedModes[l.Mode] {
		errs = append(errs, ValidationError{Field: "lab.mode", Message: fmt.Sprintf("unrecognized mode %q", l.Mode)})
	}

	known := make(map[string]bool)
	for _, id := range gates.Gates() {
		known[id] = true
	}
	for gateID := range l.Gates {
		if !known[gateID] {
			errs = append(errs, ValidationError{
				Field:   "lab.gates",
				Message: fmt.Sprintf("references unknown gate %q", gateID),
			})
		}
	}

	return errs
}
