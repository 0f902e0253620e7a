package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/cicada/internal/model"
)

// DefaultFormatTool is the formatter binary used when a step names none.
const DefaultFormatTool = "black"

// FormatOptions configures a formatter verification run.
type FormatOptions struct {
	// Tool is the formatter binary. Defaults to DefaultFormatTool.
	Tool string

	// Path is the tree to check. Defaults to ".".
	Path string

	// Diff asks the tool to print what it would change, in addition to
	// reporting the mismatch.
	Diff bool

	// Env holds extra environment variables for the tool process.
	Env map[string]string
}

// normalize fills in defaults.
func (o *FormatOptions) normalize() {
	if o.Tool == "" {
		o.Tool = DefaultFormatTool
	}
	if o.Path == "" {
		o.Path = "."
	}
}

// Args returns the formatter's argument list. The check flag is always
// present: this package only ever verifies, it never rewrites files.
func (o FormatOptions) Args() []string {
	o.normalize()
	args := []string{"--check"}
	if o.Diff {
		args = append(args, "--diff")
	}
	args = append(args, o.Path)
	return args
}

// FormatResult is the outcome of one formatter verification.
type FormatResult struct {
	// Output is the tool's combined stdout/stderr, trimmed.
	Output string

	// ExitCode is the tool's exit code.
	ExitCode int

	// Failed is true when at least one file differs from canonical
	// formatting.
	Failed bool
}

// RunFormatCheck executes the formatter in verification-only mode.
// As with RunLint, the error return covers infrastructure problems only.
func RunFormatCheck(ctx context.Context, dir string, opts FormatOptions) (*FormatResult, error) {
	opts.normalize()

	cmd := exec.CommandContext(ctx, opts.Tool, opts.Args()...)
	cmd.Dir = dir
	cmd.Env = mergedEnv(opts.Env)

	output, err := cmd.CombinedOutput()
	result := &FormatResult{Output: strings.TrimSpace(string(output))}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, model.WrapCLIError(model.ExitStepFailed,
				fmt.Sprintf("failed to run formatter %q", opts.Tool), err)
		}
		result.ExitCode = exitErr.ExitCode()
		result.Failed = true
	}

	return result, nil
}
