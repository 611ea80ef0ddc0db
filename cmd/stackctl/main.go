package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/mlopshq/stackctl/cmd/stackctl/commands"
	"github.com/mlopshq/stackctl/internal/config"
	stkerrors "github.com/mlopshq/stackctl/internal/errors"
	"github.com/mlopshq/stackctl/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe any decrypted credential buffers before exit.
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", stkerrors.SimplifyError(err))
		memguard.Purge()
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "stackctl",
		Short: "Bootstrap and operate the local MLOps stack",
		Long: `stackctl provisions secrets for the experiment-tracking and tracing
stack, deploys it with docker compose, validates service health, and
manages tracking-server users.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "stackctl.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	rootCmd.AddCommand(
		commands.NewEnvCommand(cfg),
		commands.NewDeployCommand(cfg),
		commands.NewValidateCommand(cfg),
		commands.NewUsersCommand(cfg),
		commands.NewAuthSetupCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
