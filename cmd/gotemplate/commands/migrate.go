package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/database/migration"
	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies or reverts the SQL migrations.",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Applies every pending migration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), (*migration.Migrator).Up)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Reverts every applied migration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), (*migration.Migrator).Down)
	},
}

var migrateStepsCmd = &cobra.Command{
	Use:   "steps <n>",
	Short: "Applies n migrations, or reverts -n when n is negative.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
		}
		return withMigrator(cmd.Context(), func(m *migration.Migrator) error { return m.Steps(n) })
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the applied migration version.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *migration.Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				cmd.Printf("%d (dirty)\n", v)
				return nil
			}
			cmd.Println(v)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStepsCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withMigrator opens the configured database and runs fn on a migrator
// over the embedded migrations.
func withMigrator(ctx context.Context, fn func(*migration.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Closing database failed", logger.ErrorFields("close", err))
		}
	}()

	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		return err
	}
	return fn(m)
}
