// steps.go implements the builtin step kinds. Each implementation fills
// in the StepResult (captured output, findings, tool exit) and returns
// an error only when the step failed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/cicada/internal/analyzer"
	"github.com/shinji-kodama/cicada/internal/compose"
	"github.com/shinji-kodama/cicada/internal/docker"
	"github.com/shinji-kodama/cicada/internal/envfile"
	"github.com/shinji-kodama/cicada/internal/model"
	"github.com/shinji-kodama/cicada/internal/pipeline"
	"github.com/shinji-kodama/cicada/internal/report"
)

// dockerAPI is the slice of Docker SDK behavior the engine needs.
// Narrowed to an interface so engine tests run without a daemon.
type dockerAPI interface {
	VerifyImage(ctx context.Context, tag string) error
	Close() error
}

// sdkClient adapts docker.Client to dockerAPI.
type sdkClient struct {
	cli *docker.Client
}

func (s *sdkClient) VerifyImage(ctx context.Context, tag string) error {
	return docker.VerifyImage(ctx, s.cli, tag)
}

func (s *sdkClient) Close() error {
	return s.cli.Close()
}

// ensureDocker lazily creates the SDK client on first use. The daemon
// is pinged before the client is handed out so an unreachable daemon
// surfaces as a clear connectivity error, not a failed SDK call.
func (r *Runner) ensureDocker(ctx context.Context) (dockerAPI, error) {
	if r.dockerClient != nil {
		return r.dockerClient, nil
	}
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}
	r.dockerClient = &sdkClient{cli: cli}
	return r.dockerClient, nil
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	if r.dockerClient != nil {
		return r.dockerClient.Close()
	}
	return nil
}

// executeStep dispatches on the step's kind.
func (r *Runner) executeStep(ctx context.Context, step *pipeline.Step, result *model.StepResult) error {
	switch step.Kind() {
	case model.KindRun:
		return r.runShellStep(ctx, step, result)
	case model.KindLint:
		return r.runLintStep(ctx, step, result)
	case model.KindFormatCheck:
		return r.runFormatStep(ctx, step, result)
	case model.KindImageBuild:
		return r.runImageBuildStep(ctx, step, result)
	case model.KindEnvFile:
		return r.runEnvFileStep(step)
	case model.KindComposeConfig:
		return r.runComposeConfigStep(step, result)
	case model.KindComposeBuild:
		return r.runComposeBuildStep(ctx, step, result)
	default:
		return fmt.Errorf("unknown step kind %q", step.Uses)
	}
}

// stepDir resolves the directory a step runs in.
func (r *Runner) stepDir(step *pipeline.Step) string {
	if step.WorkingDirectory == "" {
		return r.workDir
	}
	if filepath.IsAbs(step.WorkingDirectory) {
		return step.WorkingDirectory
	}
	return filepath.Join(r.workDir, step.WorkingDirectory)
}

// stepPath resolves a file parameter against the step directory.
func (r *Runner) stepPath(step *pipeline.Step, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.stepDir(step), path)
}

// runShellStep executes a "run" step with "sh -c".
func (r *Runner) runShellStep(ctx context.Context, step *pipeline.Step, result *model.StepResult) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", step.Run)
	cmd.Dir = r.stepDir(step)
	cmd.Env = os.Environ()
	for k, v := range step.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	output, err := cmd.CombinedOutput()
	result.Output = strings.TrimSpace(string(output))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ToolExit = exitErr.ExitCode()
			return fmt.Errorf("command exited with code %d", result.ToolExit)
		}
		return fmt.Errorf("failed to run command: %w", err)
	}
	return nil
}

// runLintStep executes a lint step. Findings are recorded either way;
// only a non-advisory pass fails on them.
func (r *Runner) runLintStep(ctx context.Context, step *pipeline.Step, result *model.StepResult) error {
	opts := analyzer.LintOptions{
		Tool:          step.StringParam("tool", r.lintTool),
		Path:          step.StringParam("path", "."),
		Select:        step.StringSliceParam("select"),
		MaxComplexity: step.IntParam("max-complexity", 0),
		MaxLineLength: step.IntParam("max-line-length", 0),
		ExitZero:      step.BoolParam("exit-zero", false),
		Count:         step.BoolParam("count", false),
		Statistics:    step.BoolParam("statistics", false),
		Env:           step.Env,
	}

	lintResult, err := analyzer.RunLint(ctx, r.stepDir(step), opts)
	if err != nil {
		return err
	}

	result.Output = lintResult.Output
	result.ToolExit = lintResult.ExitCode
	result.Findings = lintResult.Findings

	// An "output" parameter writes the findings as SARIF alongside the
	// run, even when the step goes on to fail.
	if out := step.StringParam("output", ""); out != "" {
		tool := opts.Tool
		if tool == "" {
			tool = analyzer.DefaultLintTool
		}
		doc, err := report.FromFindings(tool, lintResult.Findings)
		if err != nil {
			return fmt.Errorf("failed to build findings document: %w", err)
		}
		if err := report.WriteFile(doc, r.stepPath(step, out)); err != nil {
			return fmt.Errorf("failed to write findings document: %w", err)
		}
	}

	if lintResult.Failed {
		return fmt.Errorf("analyzer reported %d finding(s)", len(lintResult.Findings))
	}
	return nil
}

// runFormatStep executes a format-check step.
func (r *Runner) runFormatStep(ctx context.Context, step *pipeline.Step, result *model.StepResult) error {
	opts := analyzer.FormatOptions{
		Tool: step.StringParam("tool", r.formatTool),
		Path: step.StringParam("path", "."),
		Diff: step.BoolParam("diff", false),
		Env:  step.Env,
	}

	fmtResult, err := analyzer.RunFormatCheck(ctx, r.stepDir(step), opts)
	if err != nil {
		return err
	}

	result.Output = fmtResult.Output
	result.ToolExit = fmtResult.ExitCode

	if fmtResult.Failed {
		return errors.New("formatting differs from canonical output")
	}
	return nil
}

// runImageBuildStep builds an image and verifies its tags exist.
func (r *Runner) runImageBuildStep(ctx context.Context, step *pipeline.Step, result *model.StepResult) error {
	opts := docker.BuildOptions{
		File:    step.StringParam("file", "Dockerfile"),
		Tags:    step.StringSliceParam("tags"),
		Context: step.StringParam("context", "."),
	}

	output, err := docker.BuildImage(ctx, r.stepDir(step), opts)
	result.Output = output
	if err != nil {
		return err
	}

	if len(opts.Tags) > 0 {
		api, err := r.ensureDocker(ctx)
		if err != nil {
			return err
		}
		for _, tag := range opts.Tags {
			if err := api.VerifyImage(ctx, tag); err != nil {
				return err
			}
		}
	}
	return nil
}

// runEnvFileStep materializes placeholder values into a dotenv file.
func (r *Runner) runEnvFileStep(step *pipeline.Step) error {
	values := step.StringMapParam("values")
	if len(values) == 0 {
		return errors.New("env-file step has no values to write")
	}
	path := r.stepPath(step, step.StringParam("path", ".env"))
	return envfile.Write(path, values)
}

// runComposeConfigStep validates a compose definition natively: every
// required variable must resolve, and the interpolated document must be
// a well-formed service set. The normalized rendering is captured as
// the step output, mirroring what the compose tool's config command
// prints.
func (r *Runner) runComposeConfigStep(step *pipeline.Step, result *model.StepResult) error {
	def, err := compose.Load(r.stepPath(step, step.StringParam("file", "docker-compose.yml")))
	if err != nil {
		return err
	}

	lookup, err := r.composeLookup(step)
	if err != nil {
		return err
	}

	normalized, err := def.Normalize(lookup)
	if err != nil {
		return err
	}
	result.Output = strings.TrimSpace(string(normalized))
	return nil
}

// composeBuildOptions assembles the compose invocation for a
// compose-build step. The env file defaults to .env, matching the
// compose-config step, but is only injected when it exists so a
// pipeline without an env-file step still builds.
func (r *Runner) composeBuildOptions(step *pipeline.Step) docker.ComposeOptions {
	opts := docker.ComposeOptions{Env: step.Env}
	if file := step.StringParam("file", ""); file != "" {
		opts.Files = []string{file}
	}
	envFile := step.StringParam("env-file", ".env")
	if _, err := os.Stat(r.stepPath(step, envFile)); err == nil {
		opts.EnvFile = envFile
	}
	return opts
}

// runComposeBuildStep builds all declared services via the compose
// tool. The definition is normalized first ("docker compose config") so
// parse and interpolation errors surface with the config command's
// message instead of failing partway through a build.
func (r *Runner) runComposeBuildStep(ctx context.Context, step *pipeline.Step, result *model.StepResult) error {
	opts := r.composeBuildOptions(step)
	dir := r.stepDir(step)

	if out, err := docker.ComposeConfig(ctx, dir, opts); err != nil {
		result.Output = out
		return err
	}

	output, err := docker.ComposeBuild(ctx, dir, opts)
	result.Output = output
	return err
}

// composeLookup builds the variable resolution chain for compose
// validation: step env first, then the dotenv file, then the process
// environment.
func (r *Runner) composeLookup(step *pipeline.Step) (compose.Lookup, error) {
	var fileValues map[string]string
	envPath := r.stepPath(step, step.StringParam("env-file", ".env"))
	if _, err := os.Stat(envPath); err == nil {
		fileValues, err = envfile.Parse(envPath)
		if err != nil {
			return nil, err
		}
	}

	return compose.MapLookup(step.Env, fileValues, environMap()), nil
}

// environMap snapshots the process environment as a map.
func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
