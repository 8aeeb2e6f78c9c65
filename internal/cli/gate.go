package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/config"
	"github.com/tunelab/tunelab/internal/gates"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Evaluate quality gates against project artifacts",
}

var gateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known gates",
	Run: func(cmd *cobra.Command, args []string) {
		for _, id := range gates.Gates() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
	},
}

var gateCheckCmd = &cobra.Command{
	Use:   "check [project] [gate]",
	Short: "Evaluate one gate, or all gates, against a project's artifacts",
	Long: `Evaluate gates by scanning the project's artifact files for required
keywords and metric thresholds. Exits non-zero when any checked gate fails.

Gate evaluation is read-only: it never touches the workflow state. Use
"tunelab step complete" to run a gate as part of advancing the pipeline.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}

		cfg, err := config.LoadDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		eval := gates.NewEvaluator(root)
		eval.SetOverrides(cfg.Lab.Gates)

		format, _ := cmd.Flags().GetString("format")
		w := cmd.OutOrStdout()

		if len(args) == 2 {
			result, err := eval.Evaluate(args[1])
			if err != nil {
				return err
			}
			if format == "json" {
				out, err := result.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(w, out)
			} else {
				printGateResult(w, result)
			}
			if !result.Passed {
				return fmt.Errorf("gate %s failed: %s", result.Gate, result.Summary())
			}
			return nil
		}

		results, err := eval.EvaluateAll()
		if err != nil {
			return err
		}
		if format == "json" {
			data, _ := json.MarshalIndent(results, "", "  ")
			fmt.Fprintln(w, string(data))
		} else {
			ids := make([]string, 0, len(results))
			for id := range results {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				printGateResult(w, results[id])
			}
		}

		failed := 0
		for _, r := range results {
			if !r.Passed {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d gate(s) failed", failed)
		}
		return nil
	},
}

func printGateResult(w io.Writer, r *gates.Result) {
	mark := "PASS"
	if !r.Passed {
		mark = "FAIL"
	}
	fmt.Fprintf(w, "[%s] %s — %s\n", mark, r.Gate, r.Summary())
	for _, b := range r.Blockers {
		fmt.Fprintf(w, "  blocker: %s\n", b)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}

func init() {
	gateCheckCmd.Flags().String("format", "text", "Output format: text or json")
	gateCmd.AddCommand(gateListCmd)
	gateCmd.AddCommand(gateCheckCmd)
}
