package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/mlflow"
)

// NewUsersCommand creates the users command group for tracking-server
// account and permission management.
func NewUsersCommand(cfg *config.Config) *cobra.Command {
	var (
		adminUser string
		adminPass string
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage tracking-server users and permissions",
		Long: `Create, inspect and remove tracking-server accounts, and grant or
revoke experiment and model permissions.

Admin credentials are taken from --admin-username/--admin-password, the
generated .env file, or the OS keyring, in that order.`,
	}

	cmd.PersistentFlags().StringVar(&adminUser, "admin-username", "", "Admin username (default: from .env or 'admin')")
	cmd.PersistentFlags().StringVar(&adminPass, "admin-password", "", "Admin password (default: from .env or keyring)")

	cmd.AddCommand(
		newUsersCreateCommand(cfg, &adminUser, &adminPass),
		newUsersDeleteCommand(cfg, &adminUser, &adminPass),
		newUsersGetCommand(cfg, &adminUser, &adminPass),
		newUsersSetPasswordCommand(cfg, &adminUser, &adminPass),
		newUsersPromoteCommand(cfg, &adminUser, &adminPass),
		newUsersDemoteCommand(cfg, &adminUser, &adminPass),
		newUsersGrantCommand(cfg, &adminUser, &adminPass),
		newUsersRevokeCommand(cfg, &adminUser, &adminPass),
	)
	return cmd
}

func newUsersCreateCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var (
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				_, err := client.CreateUser(context.Background(), username, password)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "New username")
	cmd.Flags().StringVar(&password, "password", "", "User password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersDeleteCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				return client.DeleteUser(context.Background(), username)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username to delete")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUsersGetCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a user's account details",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				user, err := client.GetUser(context.Background(), username)
				if err != nil {
					return err
				}
				role := "user"
				if user.IsAdmin {
					role = "admin"
				}
				fmt.Printf("%s (id %d, %s)\n", user.Username, user.ID, role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username to look up")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUsersSetPasswordCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var (
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Set a user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				return client.UpdateUserPassword(context.Background(), username, password)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersPromoteCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote a user to admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				return client.UpdateUserAdmin(context.Background(), username, true)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username to promote")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUsersDemoteCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "demote",
		Short: "Demote an admin to a regular user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				return client.UpdateUserAdmin(context.Background(), username, false)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username to demote")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUsersGrantCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var (
		username     string
		experimentID string
		modelName    string
		permission   string
	)
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant experiment or model permission to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			if (experimentID == "") == (modelName == "") {
				return fmt.Errorf("exactly one of --experiment-id or --model-name is required")
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				ctx := context.Background()
				if experimentID != "" {
					return client.CreateExperimentPermission(ctx, experimentID, username, permission)
				}
				return client.CreateRegisteredModelPermission(ctx, modelName, username, permission)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&experimentID, "experiment-id", "", "Experiment ID")
	cmd.Flags().StringVar(&modelName, "model-name", "", "Registered model name")
	cmd.Flags().StringVar(&permission, "permission", mlflow.PermissionRead, "Permission level (READ, EDIT, MANAGE)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUsersRevokeCommand(cfg *config.Config, adminUser, adminPass *string) *cobra.Command {
	var (
		username     string
		experimentID string
		modelName    string
	)
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke experiment or model permission from a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			if (experimentID == "") == (modelName == "") {
				return fmt.Errorf("exactly one of --experiment-id or --model-name is required")
			}
			return withAdminClient(cfg, *adminUser, *adminPass, func(client *mlflow.Client) error {
				ctx := context.Background()
				if experimentID != "" {
					return client.DeleteExperimentPermission(ctx, experimentID, username)
				}
				return client.DeleteRegisteredModelPermission(ctx, modelName, username)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&experimentID, "experiment-id", "", "Experiment ID")
	cmd.Flags().StringVar(&modelName, "model-name", "", "Registered model name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
