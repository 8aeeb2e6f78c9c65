package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/events"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the transition and gate-run event log",
}

var historyTransitionsCmd = &cobra.Command{
	Use:   "transitions [project-name]",
	Short: "Show recent step transitions (omit the name to see all projects)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project := ""
		if len(args) == 1 {
			project = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")

		log, err := openEventLog()
		if err != nil {
			return err
		}
		defer log.Close()

		rows, err := log.RecentTransitions(project, limit)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		w := cmd.OutOrStdout()
		if format == "json" {
			data, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Fprintln(w, string(data))
			return nil
		}
		if len(rows) == 0 {
			fmt.Fprintln(w, "No transitions recorded.")
			return nil
		}
		for _, row := range rows {
			line := fmt.Sprintf("%s  %-12s %-22s %-16s %s", row.Timestamp, row.Project, row.Step, row.Action, row.Actor)
			if row.Detail != "" {
				line += "  (" + row.Detail + ")"
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}

var historyGatesCmd = &cobra.Command{
	Use:   "gates [project-name] [gate]",
	Short: "Show past runs of one gate for a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		log, err := openEventLog()
		if err != nil {
			return err
		}
		defer log.Close()

		rows, err := log.GateHistory(args[0], args[1], limit)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		w := cmd.OutOrStdout()
		if format == "json" {
			data, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Fprintln(w, string(data))
			return nil
		}
		if len(rows) == 0 {
			fmt.Fprintln(w, "No gate runs recorded.")
			return nil
		}
		for _, row := range rows {
			mark := "PASS"
			if !row.Passed {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "%s  [%s] %s — %d blocker(s), %d warning(s)\n",
				row.Timestamp, mark, row.Gate, row.Blockers, row.Warnings)
		}
		return nil
	},
}

func openEventLog() (*events.Log, error) {
	path, err := events.DefaultPath()
	if err != nil {
		return nil, err
	}
	log, err := events.Open(path)
	if err != nil {
		return nil, err
	}
	if err := log.Migrate(); err != nil {
		log.Close()
		return nil, err
	}
	return log, nil
}

func init() {
	for _, c := range []*cobra.Command{historyTransitionsCmd, historyGatesCmd} {
		c.Flags().Int("limit", 20, "Maximum rows to return")
		c.Flags().String("format", "text", "Output format: text or json")
	}
	historyCmd.AddCommand(historyTransitionsCmd)
	historyCmd.AddCommand(historyGatesCmd)
}
