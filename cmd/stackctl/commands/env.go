package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/credstore"
	"github.com/mlopshq/stackctl/internal/envfile"
)

// NewEnvCommand creates the env command group: generate and check
func NewEnvCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the stack's secret-populated .env file",
	}

	cmd.AddCommand(
		newEnvGenerateCommand(cfg),
		newEnvCheckCommand(cfg),
	)
	return cmd
}

func newEnvGenerateCommand(cfg *config.Config) *cobra.Command {
	var (
		templatePath      string
		outputPath        string
		useKeyring        bool
		rewriteExpansions bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the .env file from its template with fresh secrets",
		Long: `Read the .env.example template, replace every placeholder with a
cryptographically secure value, and write the .env file.

The output is always rewritten in full: secrets from a previous run that
are not derivable from the template are discarded. Values referencing
runtime variables (${...}) are copied through unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			stack := cfg.MustStack()
			if templatePath == "" {
				templatePath = stack.EnvTemplate
			}
			if outputPath == "" {
				outputPath = stack.EnvFile
				if outputPath == "" {
					outputPath = envfile.DefaultOutputPath(templatePath)
				}
			}

			engine := envfile.New(cfg.Logger, envfile.Options{RewriteExpansions: rewriteExpansions})
			if err := engine.Generate(templatePath, outputPath); err != nil {
				return err
			}

			if useKeyring {
				return storeAdminCredentials(cfg, outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "Template path (default from config)")
	cmd.Flags().StringVar(&outputPath, "out", "", "Output path (default from config)")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "Store the generated admin credentials in the OS keyring")
	cmd.Flags().BoolVar(&rewriteExpansions, "rewrite-expansions", false,
		"Replace placeholder sentinels found inside ${...} expansions instead of leaving them verbatim")

	return cmd
}

func newEnvCheckCommand(cfg *config.Config) *cobra.Command {
	var (
		templatePath string
		outputPath   string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the .env file for leftover placeholders, regenerating if stale",
		Long: `Scan an existing .env file for unresolved placeholder markers. A clean
file is left byte-for-byte untouched. A stale or missing file is fully
regenerated from the template; if neither file exists the command fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			stack := cfg.MustStack()
			if templatePath == "" {
				templatePath = stack.EnvTemplate
			}
			if outputPath == "" {
				outputPath = stack.EnvFile
			}

			engine := envfile.New(cfg.Logger, envfile.Options{})
			if err := engine.Ensure(templatePath, outputPath); err != nil {
				if errors.Is(err, envfile.ErrTemplateNotFound) {
					cfg.Logger.Error("Neither %s nor %s found", outputPath, templatePath)
				}
				return err
			}
			cfg.Logger.Info("%s looks good", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "Template path (default from config)")
	cmd.Flags().StringVar(&outputPath, "out", "", "Env file path (default from config)")

	return cmd
}

// storeAdminCredentials saves the generated admin user/password pair from
// the env file into the OS keyring.
func storeAdminCredentials(cfg *config.Config, envPath string) error {
	if credstore.IsHeadless() {
		cfg.Logger.Warn("No keyring agent available in this environment, skipping keyring storage")
		return nil
	}

	vars, err := envfile.Parse(envPath)
	if err != nil {
		return err
	}
	username := vars["MLFLOW_ADMIN_USERNAME"]
	password := vars["MLFLOW_ADMIN_PASSWORD"]
	if username == "" || password == "" {
		return fmt.Errorf("admin credentials missing from %s", envPath)
	}

	store := credstore.New(cfg.Logger)
	return store.Save(username, password)
}
