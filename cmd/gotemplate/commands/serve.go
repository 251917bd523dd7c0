package commands

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/gotemplate/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := app.Bootstrap(cfg)
		if err != nil {
			return err
		}
		return svc.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
