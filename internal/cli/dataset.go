package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/dataset"
	"github.com/tunelab/tunelab/internal/project"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Audit training data folders",
}

var datasetValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Audit a data folder for format errors, duplicates, and leakage",
	Long: `Scan every .json/.jsonl/.txt/.csv file under the folder, check example
structure, estimate token counts, and detect duplicates and train/eval
leakage. Exits non-zero when the audit finds hard errors.

With --report, the audit report is also written to <project>/reports/
data_audit.md, where the data_quality gate reads its metrics from.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir(args[0])
		if err != nil {
			return err
		}

		report, err := dataset.Validate(dir)
		if err != nil {
			return err
		}

		projectRoot, _ := cmd.Flags().GetString("report")
		if projectRoot != "" {
			root, err := projectDir(projectRoot)
			if err != nil {
				return err
			}
			if err := report.WriteAuditReport(root); err != nil {
				return fmt.Errorf("write audit report: %w", err)
			}
		}

		w := cmd.OutOrStdout()
		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(report, "", "  ")
			fmt.Fprintln(w, string(data))
		} else {
			fmt.Fprintf(w, "Files scanned:   %d\n", report.Files)
			fmt.Fprintf(w, "Examples:        %d (~%d tokens)\n", report.SampleCount, report.TokenEstimate)
			fmt.Fprintf(w, "Coverage:        %.1f%%\n", report.Coverage)
			fmt.Fprintf(w, "Duplicate rate:  %.1f%%\n", report.DuplicateRate)
			fmt.Fprintf(w, "Readiness:       %s\n", report.Readiness)
			for _, e := range report.FormatErrors {
				fmt.Fprintf(w, "  error: %s\n", e)
			}
			for _, p := range report.LeakedPairs {
				fmt.Fprintf(w, "  leakage: %s\n", p)
			}
			for _, warn := range report.Warnings {
				fmt.Fprintf(w, "  warning: %s\n", warn)
			}
		}

		if report.HasHardErrors() {
			return fmt.Errorf("audit failed: %d format error(s), %d leaked pair(s)",
				len(report.FormatErrors), len(report.LeakedPairs))
		}
		return nil
	},
}

var datasetRegisterCmd = &cobra.Command{
	Use:   "register [project] [path]",
	Short: "Audit a data folder and record it in the project manifest",
	Long: `Run the same audit as "dataset validate", then register the folder in
<project>/lab/manifest.json with its format, sample count, and size.
The dataset is marked validated only when the audit found no hard
errors; registering an imperfect dataset is allowed so the data steps
can track work in progress.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectDir(args[0])
		if err != nil {
			return err
		}
		dir, err := projectDir(args[1])
		if err != nil {
			return err
		}

		report, err := dataset.Validate(dir)
		if err != nil {
			return err
		}
		if writeReport, _ := cmd.Flags().GetBool("report"); writeReport {
			if err := report.WriteAuditReport(root); err != nil {
				return fmt.Errorf("write audit report: %w", err)
			}
		}

		// Record paths inside the project relative to its root.
		path := dir
		if rel, err := filepath.Rel(root, dir); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}

		m, err := project.RegisterDataset(root, project.Dataset{
			Path:        path,
			Format:      report.Format,
			SampleCount: report.SampleCount,
			SizeBytes:   report.SizeBytes,
			Validated:   !report.HasHardErrors(),
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Registered %s: %d example(s), %d byte(s), format %s\n",
			path, report.SampleCount, report.SizeBytes, report.Format)
		if report.HasHardErrors() {
			fmt.Fprintf(w, "Audit found %d format error(s) and %d leaked pair(s); dataset recorded as unvalidated\n",
				len(report.FormatErrors), len(report.LeakedPairs))
		}
		fmt.Fprintf(w, "Manifest now lists %d dataset(s)\n", len(m.Datasets))
		return nil
	},
}

func init() {
	datasetValidateCmd.Flags().String("format", "text", "Output format: text or json")
	datasetValidateCmd.Flags().String("report", "", "Project root to write reports/data_audit.md into")
	datasetRegisterCmd.Flags().Bool("report", false, "Also write reports/data_audit.md into the project")
	datasetCmd.AddCommand(datasetValidateCmd)
	datasetCmd.AddCommand(datasetRegisterCmd)
}
