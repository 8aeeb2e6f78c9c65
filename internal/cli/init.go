package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/config"
	"github.com/tunelab/tunelab/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Scaffold a new fine-tuning project",
	Long: `Create a project directory with the standard layout (research/, data/,
reports/, training/, adapters/, deploy/, lab/) and a fresh workflow state
with every step pending.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir, _ := cmd.Flags().GetString("dir")
		domain, _ := cmd.Flags().GetString("domain")
		baseModel, _ := cmd.Flags().GetString("base-model")
		mode, _ := cmd.Flags().GetString("mode")

		if mode == "" {
			if cfg, err := config.LoadDefault(); err == nil {
				mode = cfg.Lab.Mode
			}
		}

		root, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			return err
		}

		ws, err := project.Init(root, project.InitOpts{
			Name:      name,
			Domain:    domain,
			BaseModel: baseModel,
			Mode:      mode,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Initialized project %q in %s\n", ws.Project, root)
		fmt.Fprintf(w, "Mode: %s\n", ws.Mode)
		fmt.Fprintf(w, "Steps pending: %d\n", len(ws.Steps))
		fmt.Fprintf(w, "\nNext: tunelab step start %s research_intake\n", root)
		return nil
	},
}

func init() {
	initCmd.Flags().String("dir", ".", "Parent directory for the project")
	initCmd.Flags().String("domain", "", "Target domain (e.g. \"health insurance claims\")")
	initCmd.Flags().String("base-model", "", "Base model to fine-tune (default google/gemma-3-4b-it)")
	initCmd.Flags().String("mode", "", "Execution mode: guided or auto (default from lab config)")
}
