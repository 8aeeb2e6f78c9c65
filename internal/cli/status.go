package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/state"
	"github.com/tunelab/tunelab/internal/store"
	"github.com/tunelab/tunelab/internal/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show a project's workflow state and next action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		ws, err := store.NewStore(root).Get()
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		w := cmd.OutOrStdout()
		if format == "json" {
			data, _ := json.MarshalIndent(ws, "", "  ")
			fmt.Fprintln(w, string(data))
			return nil
		}

		fmt.Fprintf(w, "Project: %s (mode %s, state v%d)\n\n", ws.Project, ws.Mode, ws.Version)
		fmt.Fprintf(w, "%-14s %-24s %-13s %-18s %s\n", "PHASE", "STEP", "STATUS", "GATE", "NOTE")
		fmt.Fprintf(w, "%-14s %-24s %-13s %-18s %s\n",
			strings.Repeat("-", 14),
			strings.Repeat("-", 24),
			strings.Repeat("-", 13),
			strings.Repeat("-", 18),
			strings.Repeat("-", 4))
		for _, step := range workflow.All() {
			st := ws.Steps[step.ID]
			note := ""
			switch {
			case st.Status == store.StatusBlocked && st.LastError != "":
				note = st.LastError
			case st.Status == store.StatusSkipped:
				note = st.SkipReason
			case st.Status == store.StatusNeedsReview:
				note = "awaiting " + step.Reviewer
			}
			if len(note) > 40 {
				note = note[:37] + "..."
			}
			fmt.Fprintf(w, "%-14s %-24s %-13s %-18s %s\n",
				step.Phase, step.ID, st.Status, step.Gate, note)
		}

		action := state.NextAction(ws)
		fmt.Fprintf(w, "\nNext: [%s] %s\n", action.Kind, action.Message)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("format", "text", "Output format: text or json")
}
