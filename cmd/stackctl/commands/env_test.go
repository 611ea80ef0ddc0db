package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlopshq/stackctl/internal/config"
	"github.com/mlopshq/stackctl/internal/logging"
)

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Path:   filepath.Join(dir, "stackctl.yaml"),
		Logger: logging.New(false, true),
	}
	return cfg, dir
}

func TestEnvGenerateCommand(t *testing.T) {
	t.Parallel()

	cfg, dir := testConfig(t)
	templatePath := filepath.Join(dir, ".env.example")
	outPath := filepath.Join(dir, ".env")
	template := strings.Join([]string{
		"MLFLOW_PORT=5000",
		"MLFLOW_POSTGRES_PASSWORD=change_me_langfuse_password",
		"NEXTAUTH_SECRET=change_me_with_a_secure_key",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(templatePath, []byte(template), 0644))

	cmd := NewEnvCommand(cfg)
	cmd.SetArgs([]string{"generate", "--template", templatePath, "--out", outPath})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "MLFLOW_PORT=5000\n")
	assert.NotContains(t, out, "change_me")
	assert.Contains(t, out, "MLFLOW_ADMIN_USERNAME=admin\n")
	assert.Contains(t, out, "MLFLOW_ADMIN_PASSWORD=")
}

func TestEnvGenerateCommand_MissingTemplate(t *testing.T) {
	t.Parallel()

	cfg, dir := testConfig(t)
	cmd := NewEnvCommand(cfg)
	cmd.SetArgs([]string{
		"generate",
		"--template", filepath.Join(dir, "absent.example"),
		"--out", filepath.Join(dir, ".env"),
	})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
}

func TestEnvCheckCommand_CleanFile(t *testing.T) {
	t.Parallel()

	cfg, dir := testConfig(t)
	outPath := filepath.Join(dir, ".env")
	content := "MLFLOW_ADMIN_USERNAME=admin\nMLFLOW_ADMIN_PASSWORD=abc123\n"
	require.NoError(t, os.WriteFile(outPath, []byte(content), 0600))

	cmd := NewEnvCommand(cfg)
	cmd.SetArgs([]string{"check", "--template", filepath.Join(dir, "absent.example"), "--out", outPath})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "clean file must not be rewritten")
}

func TestEnvCheckCommand_RegeneratesStaleFile(t *testing.T) {
	t.Parallel()

	cfg, dir := testConfig(t)
	templatePath := filepath.Join(dir, ".env.example")
	outPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(templatePath, []byte("KEY=change_me_with_a_secure_key\n"), 0644))
	require.NoError(t, os.WriteFile(outPath, []byte("KEY=CHANGEME\n"), 0600))

	cmd := NewEnvCommand(cfg)
	cmd.SetArgs([]string{"check", "--template", templatePath, "--out", outPath})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "CHANGEME")
}
