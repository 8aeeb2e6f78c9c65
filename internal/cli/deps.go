package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tunelab/tunelab/internal/config"
	"github.com/tunelab/tunelab/internal/events"
	"github.com/tunelab/tunelab/internal/gates"
	"github.com/tunelab/tunelab/internal/state"
	"github.com/tunelab/tunelab/internal/store"
)

// projectDir resolves and checks a project path argument.
func projectDir(arg string) (string, error) {
	root, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("project %s: %w", arg, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project %s: not a directory", arg)
	}
	return root, nil
}

// openMachine wires a state machine for a project: gate threshold overrides
// from the lab config, and the event log mirror. cleanup closes the log.
func openMachine(root string) (*state.Machine, *store.Store, *config.LabConfig, func(), error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	st := store.NewStore(root)

	// The evaluator reads artifacts from the same tree the store persists to.
	eval := gates.NewEvaluator(st.Root())
	eval.SetOverrides(cfg.Lab.Gates)

	m := state.NewMachine(st, eval)

	cleanup := func() {}
	if dbPath, err := events.DefaultPath(); err == nil {
		if log, err := events.Open(dbPath); err == nil {
			if err := log.Migrate(); err == nil {
				m.SetLogger(log)
				cleanup = func() { log.Close() }
			} else {
				log.Close()
			}
		}
	}

	return m, st, cfg, cleanup, nil
}
