package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/brief"
	"github.com/tunelab/tunelab/internal/state"
	"github.com/tunelab/tunelab/internal/store"
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Drive workflow steps through their lifecycle",
}

var stepStartCmd = &cobra.Command{
	Use:   "start [project] [step]",
	Short: "Start a pending step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		m, _, cfg, cleanup, err := openMachine(root)
		if err != nil {
			return err
		}
		defer cleanup()

		ws, err := m.Start(args[1], stepActor(cmd, cfg.Lab.Actor))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Started %s (state v%d)\n", args[1], ws.Version)
		return nil
	},
}

var stepCompleteCmd = &cobra.Command{
	Use:   "complete [project] [step]",
	Short: "Complete an in-progress step, running its gate if it has one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		m, _, cfg, cleanup, err := openMachine(root)
		if err != nil {
			return err
		}
		defer cleanup()

		outputs, _ := cmd.Flags().GetStringSlice("output")
		ws, result, err := m.Complete(args[1], outputs, stepActor(cmd, cfg.Lab.Actor))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if result != nil {
			printGateResult(w, result)
		}
		st := ws.Steps[args[1]]
		switch st.Status {
		case store.StatusBlocked:
			return fmt.Errorf("step %s blocked by gate %s", args[1], result.Gate)
		case store.StatusNeedsReview:
			fmt.Fprintf(w, "%s awaits expert review (tunelab step review)\n", args[1])
		default:
			fmt.Fprintf(w, "Completed %s\n", args[1])
		}
		return nil
	},
}

var stepSkipCmd = &cobra.Command{
	Use:   "skip [project] [step]",
	Short: "Skip a pending step (requires --reason)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		m, _, cfg, cleanup, err := openMachine(root)
		if err != nil {
			return err
		}
		defer cleanup()

		reason, _ := cmd.Flags().GetString("reason")
		if _, err := m.Skip(args[1], reason, stepActor(cmd, cfg.Lab.Actor)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s: %s\n", args[1], reason)
		return nil
	},
}

var stepReviewCmd = &cobra.Command{
	Use:   "review [project] [step]",
	Short: "Record an expert review for a step awaiting approval",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		m, _, _, cleanup, err := openMachine(root)
		if err != nil {
			return err
		}
		defer cleanup()

		reviewer, _ := cmd.Flags().GetString("reviewer")
		approve, _ := cmd.Flags().GetBool("approve")
		comments, _ := cmd.Flags().GetString("comments")
		if reviewer == "" {
			return fmt.Errorf("--reviewer is required")
		}

		ws, err := m.RecordReview(args[1], store.ExpertReview{
			Reviewer: reviewer,
			Approved: approve,
			Comments: comments,
		})
		if err != nil {
			return err
		}

		verdict := "rejected"
		if approve {
			verdict = "approved"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Review recorded: %s %s %s (state v%d)\n",
			reviewer, verdict, args[1], ws.Version)
		return nil
	},
}

var stepOverrideCmd = &cobra.Command{
	Use:   "override [project] [step]",
	Short: "Complete a blocked step despite its blockers (requires --reason)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		m, _, cfg, cleanup, err := openMachine(root)
		if err != nil {
			return err
		}
		defer cleanup()

		reason, _ := cmd.Flags().GetString("reason")
		if _, err := m.Override(args[1], reason, stepActor(cmd, cfg.Lab.Actor)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Overrode gate for %s: %s\n", args[1], reason)
		return nil
	},
}

var stepBriefCmd = &cobra.Command{
	Use:   "brief [project] [step]",
	Short: "Print the agent brief for a step",
	Long: `Render the instructions handed to whoever executes a step, with the
project's domain, base model, and hardware filled in. A briefs/<step>.md
file in the project root overrides the built-in brief.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		out, err := brief.Build(root, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var stepNextCmd = &cobra.Command{
	Use:   "next [project]",
	Short: "Show the next recommended action for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		_, st, _, cleanup, err := openMachine(root)
		if err != nil {
			return err
		}
		defer cleanup()

		ws, err := st.Get()
		if err != nil {
			return err
		}
		action := state.NextAction(ws)
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", action.Kind, action.Message)
		return nil
	},
}

// stepActor returns the --actor flag value, or the config default.
func stepActor(cmd *cobra.Command, fallback string) string {
	if actor, _ := cmd.Flags().GetString("actor"); actor != "" {
		return actor
	}
	return fallback
}

func init() {
	for _, c := range []*cobra.Command{stepStartCmd, stepCompleteCmd, stepSkipCmd, stepOverrideCmd} {
		c.Flags().String("actor", "", "Actor recorded on the transition (default from lab config)")
	}
	stepCompleteCmd.Flags().StringSlice("output", nil, "Output artifact path (repeatable)")
	stepSkipCmd.Flags().String("reason", "", "Why the step is being skipped")
	stepOverrideCmd.Flags().String("reason", "", "Why the gate is being overridden")
	stepReviewCmd.Flags().String("reviewer", "", "Reviewer name")
	stepReviewCmd.Flags().Bool("approve", false, "Approve the step (omit to reject)")
	stepReviewCmd.Flags().String("comments", "", "Review comments")

	stepCmd.AddCommand(stepStartCmd)
	stepCmd.AddCommand(stepCompleteCmd)
	stepCmd.AddCommand(stepSkipCmd)
	stepCmd.AddCommand(stepReviewCmd)
	stepCmd.AddCommand(stepOverrideCmd)
	stepCmd.AddCommand(stepBriefCmd)
	stepCmd.AddCommand(stepNextCmd)
}
