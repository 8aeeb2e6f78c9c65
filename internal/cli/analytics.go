package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/analytics"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summary statistics over the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetString("since")

		log, err := openEventLog()
		if err != nil {
			return err
		}
		defer log.Close()

		durations, err := analytics.QueryStepDurations(log, since)
		if err != nil {
			return err
		}
		gateRates, err := analytics.QueryGatePassRates(log, since)
		if err != nil {
			return err
		}
		activity, err := analytics.QueryProjectActivity(log, since)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			out := map[string]interface{}{
				"step_durations":  durations,
				"gate_pass_rates": gateRates,
				"projects":        activity,
			}
			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Fprintln(w, string(data))
			return nil
		}

		fmt.Fprintln(w, "Step durations (minutes):")
		if len(durations) == 0 {
			fmt.Fprintln(w, "  no completed steps recorded")
		}
		for _, d := range durations {
			fmt.Fprintf(w, "  %-24s n=%-4d avg=%-8.1f p50=%-8.1f p95=%.1f\n",
				d.Step, d.Count, d.Avg, d.P50, d.P95)
		}

		fmt.Fprintln(w, "\nGate pass rates:")
		if len(gateRates) == 0 {
			fmt.Fprintln(w, "  no gate runs recorded")
		}
		for _, g := range gateRates {
			fmt.Fprintf(w, "  %-22s runs=%-4d pass=%5.1f%%  first-pass=%5.1f%%  avg blockers=%.1f\n",
				g.Gate, g.Runs, g.PassPct, g.FirstPassPct, g.AvgBlockers)
		}

		fmt.Fprintln(w, "\nProjects:")
		if len(activity) == 0 {
			fmt.Fprintln(w, "  no activity recorded")
		}
		for _, p := range activity {
			fmt.Fprintf(w, "  %-16s transitions=%-4d overrides=%-3d last seen %s\n",
				p.Project, p.Transitions, p.Overrides, p.LastSeen)
		}
		return nil
	},
}

func init() {
	analyticsCmd.Flags().String("since", "", "Only include events at or after this timestamp (YYYY-MM-DD)")
	analyticsCmd.Flags().String("format", "text", "Output format: text or json")
	rootCmd.AddCommand(analyticsCmd)
}
