// compose_exec.go runs "docker compose" as a child process for the
// compose-config and compose-build steps. The compose plugin has no SDK
// equivalent, so these operations shell out; the argument construction
// mirrors what a pipeline author would type by hand.
package docker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/cicada/internal/model"
)

// ComposeOptions configures a compose invocation.
type ComposeOptions struct {
	// Files lists compose definition files, passed as -f flags in order.
	// Empty means the compose tool's default lookup applies.
	Files []string

	// EnvFile is the dotenv file passed via --env-file, if any.
	EnvFile string

	// Env holds extra environment variables injected into the child
	// process on top of the inherited environment.
	Env map[string]string
}

// composeArgs constructs the common leading arguments for docker compose
// commands. Each compose file is specified with a -f flag; docker
// compose merges multiple files in order, with later files taking
// precedence.
func composeArgs(opts ComposeOptions, subcommand string, extra ...string) []string {
	args := make([]string, 0, len(opts.Files)*2+len(extra)+4)
	// "compose" is the subcommand for "docker compose" (plugin-style
	// invocation), not the legacy docker-compose standalone binary.
	args = append(args, "compose")
	for _, f := range opts.Files {
		args = append(args, "-f", f)
	}
	if opts.EnvFile != "" {
		args = append(args, "--env-file", opts.EnvFile)
	}
	args = append(args, subcommand)
	args = append(args, extra...)
	return args
}

// ComposeConfig asks the compose tool to parse, interpolate, and
// normalize the definition ("docker compose config"). The normalized
// output is returned on success; any parse or interpolation error fails
// the call with the tool's message.
func ComposeConfig(ctx context.Context, projectDir string, opts ComposeOptions) (string, error) {
	return runCompose(ctx, projectDir, composeArgs(opts, "config"), opts.Env)
}

// ComposeBuild builds every service the definition declares
// ("docker compose build").
func ComposeBuild(ctx context.Context, projectDir string, opts ComposeOptions) (string, error) {
	return runCompose(ctx, projectDir, composeArgs(opts, "build"), opts.Env)
}

// runCompose executes a docker compose command as a child process in the
// given working directory, optionally injecting extra environment
// variables. docker compose resolves relative paths in YAML files
// against the working directory, so it must be the project root.
//
// Both stdout and stderr are captured; the combined output is returned
// in all cases for step result capture.
func runCompose(ctx context.Context, projectDir string, args []string, envVars map[string]string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = projectDir

	// os.Environ returns a copy, so appending does not affect this
	// process.
	cmd.Env = os.Environ()
	for k, v := range envVars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	output, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(output))
	if err != nil {
		return text, model.WrapCLIError(
			model.ExitStepFailed,
			fmt.Sprintf("docker compose failed: %s", text),
			err,
		)
	}
	return text, nil
}
