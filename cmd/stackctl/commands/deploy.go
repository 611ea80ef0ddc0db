package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlopshq/stackctl/internal/compose"
	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/envfile"
	"github.com/mlopshq/stackctl/internal/health"
)

// NewDeployCommand creates the deploy command
func NewDeployCommand(cfg *config.Config) *cobra.Command {
	var (
		skipValidate bool
		startupWait  int
		keepVolumes  bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the MLOps stack",
		Long: `Deploy the full stack: check prerequisites, ensure a provisioned .env
exists, pull images, start the containers and validate service health.

The .env check regenerates the file only when it is missing or still
contains placeholder markers, so repeated deploys keep their secrets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := cfg.Load(); err != nil {
				return err
			}
			stack := cfg.MustStack()

			if err := compose.CheckPrerequisites(ctx, cfg.Logger); err != nil {
				return err
			}

			engine := envfile.New(cfg.Logger, envfile.Options{})
			if err := engine.Ensure(stack.EnvTemplate, stack.EnvFile); err != nil {
				return err
			}

			runner, err := compose.New(ctx, cfg.Logger, stack.ComposeFile)
			if err != nil {
				return err
			}

			if err := runner.Down(ctx, !keepVolumes); err != nil {
				cfg.Logger.Debug("No existing containers to stop: %v", err)
			}
			if err := runner.Pull(ctx); err != nil {
				return err
			}
			if err := runner.Up(ctx); err != nil {
				return err
			}

			if skipValidate {
				cfg.Logger.Info("Stack deployed (validation skipped)")
				return runner.Ps(ctx)
			}

			cfg.Logger.Step("Waiting %d seconds for services to start", startupWait)
			time.Sleep(time.Duration(startupWait) * time.Second)

			env, err := envfile.Parse(stack.EnvFile)
			if err != nil {
				return err
			}

			checker := health.New(cfg.Logger)
			results, ok := checker.ValidateStack(ctx, stack, env)
			if !health.Summarize(cfg.Logger, results) || !ok {
				return &deployValidationError{}
			}

			cfg.Logger.Info("MLOps stack deployed successfully")
			cfg.Logger.Info("Tracking server: %s", stack.TrackingURL)
			cfg.Logger.Info("Tracing server:  %s", stack.TracingURL)
			cfg.Logger.Info("Next: run 'stackctl auth-setup' to rotate the admin password")
			return runner.Ps(ctx)
		},
	}

	cmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "Skip service validation after startup")
	cmd.Flags().IntVar(&startupWait, "wait", 60, "Seconds to wait for services before validating")
	cmd.Flags().BoolVar(&keepVolumes, "keep-volumes", false, "Keep existing data volumes when stopping old containers")

	return cmd
}

type deployValidationError struct{}

func (*deployValidationError) Error() string {
	return "service validation failed; try 'docker compose logs -f'"
}
