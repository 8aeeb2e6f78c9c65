package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tunelab/tunelab/internal/config"
	"github.com/tunelab/tunelab/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	Long: `Start the JSON API on localhost. Every request names its project via the
?project= query parameter, so one server fronts any number of project
directories on the machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		port := cfg.Lab.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		srv := web.NewServer(port, cfg.Lab.Gates)
		if log, err := openEventLog(); err == nil {
			defer log.Close()
			srv.SetLogger(log)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "tunelab API on http://127.0.0.1:%d\n", port)
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on (default from lab config)")
}
