package docker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cicada/internal/model"
)

// writeStubDocker installs a fake docker binary ahead of PATH. Using a
// stub keeps these tests hermetic; fidelity to the real tool's argument
// handling lives in the composeArgs tests.
func writeStubDocker(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tools are POSIX shell scripts")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "docker")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestComposeConfig_ReturnsNormalizedOutput(t *testing.T) {
	writeStubDocker(t, `echo "args: $@"
echo "services:"
echo "  app:"
echo "    image: service:ci"
exit 0
`)

	out, err := ComposeConfig(context.Background(), t.TempDir(), ComposeOptions{
		Files:   []string{"docker-compose.yml"},
		EnvFile: ".env",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "args: compose -f docker-compose.yml --env-file .env config")
	assert.Contains(t, out, "image: service:ci")
}

func TestComposeConfig_ToolFailure(t *testing.T) {
	writeStubDocker(t, `echo "required variable API_ID is missing a value" >&2
exit 1
`)

	out, err := ComposeConfig(context.Background(), t.TempDir(), ComposeOptions{
		Files: []string{"docker-compose.yml"},
	})
	require.Error(t, err)
	assert.Contains(t, out, "required variable API_ID")

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitStepFailed, cliErr.Code)
}

func TestComposeBuild_InjectsEnvVars(t *testing.T) {
	writeStubDocker(t, `echo "args: $@"
echo "COMPOSE_TEST_MARKER=$COMPOSE_TEST_MARKER"
exit 0
`)

	out, err := ComposeBuild(context.Background(), t.TempDir(), ComposeOptions{
		Files: []string{"docker-compose.yml"},
		Env:   map[string]string{"COMPOSE_TEST_MARKER": "on"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "args: compose -f docker-compose.yml build")
	assert.Contains(t, out, "COMPOSE_TEST_MARKER=on")
}
