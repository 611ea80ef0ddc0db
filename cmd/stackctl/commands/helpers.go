package commands

import (
	"errors"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/credstore"
	"github.com/mlopshq/stackctl/internal/envfile"
	stkerrors "github.com/mlopshq/stackctl/internal/errors"
	"github.com/mlopshq/stackctl/internal/mlflow"
	"github.com/mlopshq/stackctl/internal/secure"
)

// adminCredentials resolves the tracking-server admin credentials from, in
// order: explicit flags, the generated env file, the OS keyring. The
// password is returned in a protected buffer; callers open it only for the
// duration of the API call.
func adminCredentials(cfg *config.Config, flagUser, flagPass string) (string, *secure.SecureBuffer, error) {
	username := flagUser
	password := flagPass

	if username == "" || password == "" {
		vars, err := envfile.Parse(cfg.MustStack().EnvFile)
		if err == nil {
			if username == "" {
				username = vars["MLFLOW_ADMIN_USERNAME"]
			}
			if password == "" {
				password = vars["MLFLOW_ADMIN_PASSWORD"]
			}
		}
	}

	if username == "" {
		username = "admin"
	}

	if password == "" && !credstore.IsHeadless() {
		store := credstore.New(cfg.Logger)
		stored, err := store.Lookup(username)
		if err == nil {
			password = stored
		} else if !errors.Is(err, credstore.ErrNotFound) {
			cfg.Logger.Debug("Keyring lookup failed: %v", err)
		}
	}

	if password == "" {
		return "", nil, stkerrors.UserError{
			Message:    "Admin password required",
			Suggestion: "Use --admin-password, set MLFLOW_ADMIN_PASSWORD in the .env, or store it with 'stackctl env generate --keyring'",
		}
	}

	return username, secure.NewSecureString(password), nil
}

// withAdminClient runs fn with an authenticated tracking-server client,
// keeping the admin password protected outside the call.
func withAdminClient(cfg *config.Config, flagUser, flagPass string, fn func(client *mlflow.Client) error) error {
	username, buf, err := adminCredentials(cfg, flagUser, flagPass)
	if err != nil {
		return err
	}
	defer buf.Destroy()

	return buf.WithString(func(password string) error {
		client := mlflow.NewClient(cfg.Logger, cfg.MustStack().TrackingURL, mlflow.Credentials{
			Username: username,
			Password: password,
		})
		return fn(client)
	})
}
