package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/envfile"
	"github.com/mlopshq/stackctl/internal/health"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(cfg *config.Config) *cobra.Command {
	var wait int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate that all stack services are healthy",
		Long: `Probe every configured service: HTTP health endpoints for the web
services, object stores and ClickHouse, and real connections to the
Postgres instances using credentials from the generated .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := cfg.Load(); err != nil {
				return err
			}
			stack := cfg.MustStack()

			if wait > 0 {
				cfg.Logger.Step("Waiting %d seconds before validation", wait)
				time.Sleep(time.Duration(wait) * time.Second)
			}

			env, err := envfile.Parse(stack.EnvFile)
			if err != nil {
				cfg.Logger.Warn("Could not read %s (%v), using configured defaults", stack.EnvFile, err)
				env = map[string]string{}
			}

			checker := health.New(cfg.Logger)
			results, _ := checker.ValidateStack(ctx, stack, env)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tKIND\tSTATUS\tDETAIL")
			for _, r := range results {
				status := "healthy"
				if !r.OK {
					status = "FAILED"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Kind, status, r.Detail)
			}
			_ = w.Flush()

			if !health.Summarize(cfg.Logger, results) {
				return fmt.Errorf("service validation failed")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&wait, "wait", "w", 0, "Seconds to wait before starting validation")

	return cmd
}
