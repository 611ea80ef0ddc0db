package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/credstore"
	"github.com/mlopshq/stackctl/internal/envfile"
	stkerrors "github.com/mlopshq/stackctl/internal/errors"
	"github.com/mlopshq/stackctl/internal/logging"
	"github.com/mlopshq/stackctl/internal/mlflow"
)

// NewAuthSetupCommand creates the auth-setup command: the run-once
// first-login flow that rotates the tracking server's admin password.
func NewAuthSetupCommand(cfg *config.Config) *cobra.Command {
	var (
		adminUser   string
		adminPass   string
		newPassword string
		useKeyring  bool
	)

	cmd := &cobra.Command{
		Use:   "auth-setup",
		Short: "Rotate the tracking server's admin password after first startup",
		Long: `Authenticate against the tracking server with the current admin
credentials, set a new admin password (generated unless --new-password is
given), verify the new credentials, and update the .env file in place so
subsequent commands keep working.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := cfg.Load(); err != nil {
				return err
			}
			stack := cfg.MustStack()

			if newPassword == "" {
				newPassword = envfile.NewGenerator().Password(envfile.ServicePasswordLength)
				cfg.Logger.Debug("Generated new admin password %s", logging.Secret(newPassword))
			} else if len(newPassword) < 8 {
				return stkerrors.UserError{
					Message:    "New password too short",
					Suggestion: "Use at least 8 characters, or omit --new-password to generate one",
				}
			}

			var username string
			err := withAdminClient(cfg, adminUser, adminPass, func(client *mlflow.Client) error {
				username = client.Username()
				cfg.Logger.Step("Rotating admin password for '%s'", username)
				return client.UpdateUserPassword(ctx, username, newPassword)
			})
			if err != nil {
				return stkerrors.ServiceError("mlflow", "admin password rotation", err)
			}

			// Verify the new credentials before persisting them anywhere.
			verify := mlflow.NewClient(cfg.Logger, stack.TrackingURL, mlflow.Credentials{
				Username: username,
				Password: newPassword,
			})
			if _, err := verify.GetUser(ctx, username); err != nil {
				return stkerrors.ServiceError("mlflow", "verifying rotated credentials", err)
			}
			cfg.Logger.Info("New admin credentials verified")

			if err := envfile.UpdateValue(stack.EnvFile, "MLFLOW_ADMIN_PASSWORD", newPassword); err != nil {
				cfg.Logger.Warn("Could not update %s: %v", stack.EnvFile, err)
				cfg.Logger.Warn("Set MLFLOW_ADMIN_PASSWORD manually to the new value")
			} else {
				cfg.Logger.Info("Updated MLFLOW_ADMIN_PASSWORD in %s", stack.EnvFile)
			}

			if useKeyring {
				if credstore.IsHeadless() {
					cfg.Logger.Warn("No keyring agent available, skipping keyring storage")
					return nil
				}
				store := credstore.New(cfg.Logger)
				return store.Save(username, newPassword)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminUser, "admin-username", "", "Current admin username (default: from .env or 'admin')")
	cmd.Flags().StringVar(&adminPass, "admin-password", "", "Current admin password (default: from .env or keyring)")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "New admin password (generated when omitted)")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "Store the new credentials in the OS keyring")

	return cmd
}
