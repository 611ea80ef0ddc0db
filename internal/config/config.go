package config

import (
	"os"

	stkerrors "github.com/mlopshq/stackctl/internal/errors"
	"github.com/mlopshq/stackctl/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Stack          *Stack
}

// Stack represents the stackctl.yaml structure: file paths for the env
// template pipeline plus the endpoints the validate and users commands
// talk to.
type Stack struct {
	Version     int    `yaml:"version"`
	EnvTemplate string `yaml:"envTemplate,omitempty"`
	EnvFile     string `yaml:"envFile,omitempty"`
	ComposeFile string `yaml:"composeFile,omitempty"`

	TrackingURL string `yaml:"trackingUrl,omitempty"`
	TracingURL  string `yaml:"tracingUrl,omitempty"`

	HTTPChecks     []HTTPCheck     `yaml:"httpChecks,omitempty"`
	PostgresChecks []PostgresCheck `yaml:"postgresChecks,omitempty"`
}

// HTTPCheck is a named health endpoint probed with a GET request.
type HTTPCheck struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// PostgresCheck describes a Postgres instance to ping. Credentials come
// from the generated env file via the *Var keys, falling back to the
// Default* literals when the key is absent.
type PostgresCheck struct {
	Name            string `yaml:"name"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	UserVar         string `yaml:"userVar"`
	PasswordVar     string `yaml:"passwordVar"`
	DatabaseVar     string `yaml:"databaseVar"`
	DefaultUser     string `yaml:"defaultUser,omitempty"`
	DefaultDatabase string `yaml:"defaultDatabase,omitempty"`
}

// Default returns the stack layout stackctl ships for: an MLflow tracking
// server, a Langfuse tracing server, their Postgres instances, MinIO object
// stores and ClickHouse, on their conventional local ports.
func Default() *Stack {
	return &Stack{
		Version:     0,
		EnvTemplate: ".env.example",
		EnvFile:     ".env",
		ComposeFile: "docker-compose.yml",
		TrackingURL: "http://localhost:5000",
		TracingURL:  "http://localhost:3000",
		HTTPChecks: []HTTPCheck{
			{Name: "MLflow Server", URL: "http://localhost:5000/health"},
			{Name: "MLflow MinIO", URL: "http://localhost:9002/minio/health/live"},
			{Name: "Langfuse MinIO", URL: "http://localhost:9090/minio/health/live"},
			{Name: "Langfuse ClickHouse", URL: "http://localhost:8123/ping"},
			{Name: "Langfuse Web", URL: "http://localhost:3000/api/public/health"},
		},
		PostgresChecks: []PostgresCheck{
			{
				Name: "MLflow", Host: "localhost", Port: 5434,
				UserVar: "MLFLOW_POSTGRES_USER", PasswordVar: "MLFLOW_POSTGRES_PASSWORD",
				DatabaseVar: "MLFLOW_POSTGRES_DB", DefaultUser: "mlflow", DefaultDatabase: "mlflow",
			},
			{
				Name: "MLflow Auth", Host: "localhost", Port: 5433,
				UserVar: "MLFLOW_POSTGRES_AUTH_USER", PasswordVar: "MLFLOW_POSTGRES_AUTH_PASSWORD",
				DatabaseVar: "MLFLOW_POSTGRES_AUTH_DB", DefaultUser: "mlflow_auth", DefaultDatabase: "mlflow_auth",
			},
			{
				Name: "Langfuse", Host: "localhost", Port: 5435,
				UserVar: "LANGFUSE_POSTGRES_USER", PasswordVar: "LANGFUSE_POSTGRES_PASSWORD",
				DatabaseVar: "LANGFUSE_POSTGRES_DB", DefaultUser: "langfuse", DefaultDatabase: "langfuse",
			},
		},
	}
}

// Load reads and parses the stackctl.yaml file. A missing file is not an
// error: the built-in stack layout applies, so the tool works out of the
// box next to the compose file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			c.Logger.Debug("No %s found, using built-in stack layout", c.Path)
			c.Stack = Default()
			return nil
		}
		return stkerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := validateSchema(data); err != nil {
		return stkerrors.ConfigError{
			Field:      "path",
			Value:      c.Path,
			Message:    err.Error(),
			Suggestion: "Compare your stackctl.yaml against the documented schema",
		}
	}

	var stack Stack
	if err := yaml.Unmarshal(data, &stack); err != nil {
		return stkerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if stack.Version != 0 {
		return stkerrors.ConfigError{
			Field:      "version",
			Value:      stack.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your stackctl.yaml file",
		}
	}

	applyDefaults(&stack)
	c.Stack = &stack
	return nil
}

// applyDefaults fills unset fields from the built-in layout. Explicit
// check lists in the file replace the defaults wholesale.
func applyDefaults(stack *Stack) {
	def := Default()
	if stack.EnvTemplate == "" {
		stack.EnvTemplate = def.EnvTemplate
	}
	if stack.EnvFile == "" {
		stack.EnvFile = def.EnvFile
	}
	if stack.ComposeFile == "" {
		stack.ComposeFile = def.ComposeFile
	}
	if stack.TrackingURL == "" {
		stack.TrackingURL = def.TrackingURL
	}
	if stack.TracingURL == "" {
		stack.TracingURL = def.TracingURL
	}
	if stack.HTTPChecks == nil {
		stack.HTTPChecks = def.HTTPChecks
	}
	if stack.PostgresChecks == nil {
		stack.PostgresChecks = def.PostgresChecks
	}
}

// MustStack returns the loaded stack definition, loading defaults first if
// a command runs without Load having been called.
func (c *Config) MustStack() *Stack {
	if c.Stack == nil {
		c.Stack = Default()
	}
	return c.Stack
}
