package commands

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/database/migration"
)

var allowDrop bool

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Creates the configured database and applies the migrations.",
	Long: `Creates the configured database if it does not exist and applies every
migration. With --allow-db-drop an existing database is dropped first; this
is refused unless the database name marks it as a test database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		if err := database.InitDatabase(cmd.Context(), cfg.Database.DSN, database.InitOptions{Drop: allowDrop}, log); err != nil {
			return err
		}
		return withMigrator(cmd.Context(), (*migration.Migrator).Up)
	},
}

func init() {
	initDBCmd.Flags().BoolVar(&allowDrop, "allow-db-drop", false, "drop an existing test database first")
	rootCmd.AddCommand(initDBCmd)
}
