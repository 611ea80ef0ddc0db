package compose

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlopshq/stackctl/internal/logging"
)

func TestCommand_PluginArgv(t *testing.T) {
	t.Parallel()

	r := &Runner{
		logger:      logging.New(false, true),
		composeFile: "docker-compose.yml",
		bin:         []string{"docker", "compose"},
	}
	cmd := r.command(context.Background(), "down", "-v")
	assert.Equal(t, []string{"docker", "compose", "-f", "docker-compose.yml", "down", "-v"}, cmd.Args)
}

func TestCommand_StandaloneArgv(t *testing.T) {
	t.Parallel()

	r := &Runner{
		logger: logging.New(false, true),
		bin:    []string{"docker-compose"},
	}
	cmd := r.command(context.Background(), "pull")
	// No -f flag when no compose file is configured.
	assert.Equal(t, []string{"docker-compose", "pull"}, cmd.Args)
}

func TestExitCode_ProcessNeverStarted(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("/nonexistent-binary")
	assert.Equal(t, -1, exitCode(cmd))
}

func TestFirstLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single line", "error: boom", "error: boom"},
		{"multi line", "first failure\nsecond line\n", "first failure"},
		{"surrounding whitespace", "  trimmed  \n", "trimmed"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, firstLine([]byte(tt.in)))
		})
	}
}
