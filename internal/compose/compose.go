// Package compose shells out to docker compose to start and stop the
// stack's containers.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	stkerrors "github.com/mlopshq/stackctl/internal/errors"
	"github.com/mlopshq/stackctl/internal/logging"
)

// Runner executes docker compose commands against one compose file
type Runner struct {
	logger      *logging.Logger
	composeFile string
	// argv prefix for compose invocations: ["docker", "compose"] for the
	// plugin, ["docker-compose"] for the standalone binary
	bin []string
}

// New creates a runner, preferring the compose plugin over the legacy
// standalone binary.
func New(ctx context.Context, logger *logging.Logger, composeFile string) (*Runner, error) {
	if _, err := exec.LookPath("docker"); err == nil {
		probe := exec.CommandContext(ctx, "docker", "compose", "version")
		if probe.Run() == nil {
			return &Runner{logger: logger, composeFile: composeFile, bin: []string{"docker", "compose"}}, nil
		}
	}
	if _, err := exec.LookPath("docker-compose"); err == nil {
		return &Runner{logger: logger, composeFile: composeFile, bin: []string{"docker-compose"}}, nil
	}
	return nil, stkerrors.WrapCommandNotFound("docker-compose", fmt.Errorf("no compose implementation found"))
}

// CheckPrerequisites verifies docker is installed and the daemon is running
func CheckPrerequisites(ctx context.Context, logger *logging.Logger) error {
	logger.Step("Checking prerequisites")

	if _, err := exec.LookPath("docker"); err != nil {
		return stkerrors.WrapCommandNotFound("docker", err)
	}

	cmd := exec.CommandContext(ctx, "docker", "info")
	if out, err := cmd.CombinedOutput(); err != nil {
		return stkerrors.CommandError{
			Command:    "docker info",
			Message:    firstLine(out),
			Suggestion: "Start the Docker daemon and try again",
		}
	}

	logger.Info("All prerequisites are available")
	return nil
}

// Down stops the stack. With removeVolumes the database volumes are
// dropped too, which discards previously provisioned credentials.
func (r *Runner) Down(ctx context.Context, removeVolumes bool) error {
	args := []string{"down"}
	if removeVolumes {
		args = append(args, "-v")
	}
	return r.run(ctx, "Stopping existing containers", args...)
}

// Pull fetches the latest images
func (r *Runner) Pull(ctx context.Context) error {
	return r.run(ctx, "Pulling latest images", "pull")
}

// Up starts the stack detached. Output streams through so long builds
// stay visible instead of appearing hung.
func (r *Runner) Up(ctx context.Context) error {
	r.logger.Step("Starting services")
	cmd := r.command(ctx, "up", "-d", "--build")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return stkerrors.CommandError{
			Command:    strings.Join(append(r.bin, "up", "-d", "--build"), " "),
			ExitCode:   exitCode(cmd),
			Suggestion: "Check the compose output above for the failing service",
		}
	}
	r.logger.Info("Services started")
	return nil
}

// Ps prints the container status table
func (r *Runner) Ps(ctx context.Context) error {
	cmd := r.command(ctx, "ps")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (r *Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	full := make([]string, 0, len(r.bin)+2+len(args))
	full = append(full, r.bin[1:]...)
	if r.composeFile != "" {
		full = append(full, "-f", r.composeFile)
	}
	full = append(full, args...)
	return exec.CommandContext(ctx, r.bin[0], full...)
}

// run executes a compose subcommand with captured output and a logged
// description.
func (r *Runner) run(ctx context.Context, description string, args ...string) error {
	r.logger.Step("%s", description)

	var stderr bytes.Buffer
	cmd := r.command(ctx, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stkerrors.CommandError{
			Command:    strings.Join(append(r.bin, args...), " "),
			ExitCode:   exitCode(cmd),
			Message:    firstLine(stderr.Bytes()),
			Suggestion: "Run 'docker compose logs -f' to inspect the failing service",
		}
	}

	r.logger.Info("%s completed", description)
	return nil
}

// exitCode is safe to call when the command never started
func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
