package commands

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/gotemplate/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints build information.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(version.Get().Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
