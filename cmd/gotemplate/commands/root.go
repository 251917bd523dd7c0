package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/gotemplate/app"
	"github.com/kbukum/gotemplate/config"
	"github.com/kbukum/gotemplate/logger"
)

var (
	configFile  string
	envFile     string
	environment string
)

var rootCmd = &cobra.Command{
	Use:           app.ServiceName,
	Short:         "Music catalog API: bands, musicians and memberships.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: cmd/gotemplate/config.yml or ./config.yml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file loaded before the config (default: .env.<environment> or .env)")
	flags.StringVarP(&environment, "environment", "e", "", "environment name, overrides "+config.EnvironmentVar)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the service configuration, applies defaults and
// validates it.
func loadConfig() (*app.Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if environment != "" {
		opts = append(opts, config.WithEnvironment(environment))
	}

	cfg := &app.Config{}
	if err := config.LoadConfig(app.ServiceName, cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if environment != "" {
		cfg.Environment = environment
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *app.Config) *logger.Logger {
	logger.Init(&cfg.Logging)
	return logger.GetGlobalLogger()
}
