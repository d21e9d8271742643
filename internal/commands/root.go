// Package commands implements the budgetctl command tree.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"budgetwise/internal/backend"
	"budgetwise/internal/cli"
	"budgetwise/internal/config"
	"budgetwise/internal/log"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Manage budgetwise expenses from the command line",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	logger := func() *log.Logger {
		cfg := log.DefaultConfig()
		cfg.Level = log.ParseLevel(logLevel)
		cfg.Component = "budgetctl"
		cfg.Output = rootCmd.ErrOrStderr()
		return log.New(cfg)
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newAddCommand(logger),
		newListCommand(logger),
		newSummaryCommand(logger),
		newDueCommand(logger),
		newTokenCommand(),
	)
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withBackend opens the configured store for the duration of fn.
func withBackend(ctx context.Context, logger *log.Logger, fn func(backend.Backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer result.Close()
	return fn(result.Backend)
}
