package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "tunelab",
	Short: "tunelab — a workbench for domain fine-tuning projects",
	Long: `tunelab walks a fine-tuning project through its phases: domain research,
data collection, dataset preparation, training, evaluation, and deployment.

Each project directory carries its own state under lab/ (JSON documents);
transitions are mirrored to ~/.tunelab/events.db (SQLite). Gated steps must
pass their quality gate before the pipeline advances.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}
