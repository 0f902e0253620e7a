package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/shinji-kodama/cicada/internal/model"
)

// DefaultLintTool is the analyzer binary used when a step names none.
const DefaultLintTool = "flake8"

// LintOptions configures a single analyzer invocation.
type LintOptions struct {
	// Tool is the analyzer binary. Defaults to DefaultLintTool.
	Tool string

	// Path is the tree to analyze, relative to the working directory.
	// Defaults to ".".
	Path string

	// Select restricts reporting to rule codes with these prefixes.
	// A strict pass sets this to the fatal categories.
	Select []string

	// MaxComplexity and MaxLineLength are advisory thresholds; zero
	// means the flag is omitted.
	MaxComplexity int
	MaxLineLength int

	// ExitZero makes the pass advisory: the tool is asked to exit zero
	// regardless of findings, and the runner treats a findings exit as
	// success even if the tool ignores the flag.
	ExitZero bool

	// Count and Statistics are passthrough reporting flags.
	Count      bool
	Statistics bool

	// Env holds extra environment variables for the tool process.
	Env map[string]string
}

// normalize fills in defaults.
func (o *LintOptions) normalize() {
	if o.Tool == "" {
		o.Tool = DefaultLintTool
	}
	if o.Path == "" {
		o.Path = "."
	}
}

// Args returns the analyzer's argument list. Exposed for testing.
func (o LintOptions) Args() []string {
	o.normalize()
	args := []string{o.Path}
	if len(o.Select) > 0 {
		args = append(args, "--select="+strings.Join(o.Select, ","))
	}
	if o.MaxComplexity > 0 {
		args = append(args, "--max-complexity="+strconv.Itoa(o.MaxComplexity))
	}
	if o.MaxLineLength > 0 {
		args = append(args, "--max-line-length="+strconv.Itoa(o.MaxLineLength))
	}
	if o.ExitZero {
		args = append(args, "--exit-zero")
	}
	if o.Count {
		args = append(args, "--count")
	}
	if o.Statistics {
		args = append(args, "--statistics")
	}
	return args
}

// LintResult is the outcome of one analyzer invocation.
type LintResult struct {
	// Output is the tool's combined stdout/stderr, trimmed.
	Output string

	// ExitCode is the tool's exit code.
	ExitCode int

	// Findings holds the parsed diagnostics.
	Findings []model.Finding

	// Failed is true when the step should fail: the tool exited nonzero
	// and the pass is not advisory.
	Failed bool
}

// RunLint executes the analyzer in the given directory.
//
// The error return covers infrastructure problems only (tool missing,
// context cancelled); findings never produce an error. Callers decide
// pass/fail from Result.Failed, which already accounts for ExitZero.
func RunLint(ctx context.Context, dir string, opts LintOptions) (*LintResult, error) {
	opts.normalize()

	cmd := exec.CommandContext(ctx, opts.Tool, opts.Args()...)
	cmd.Dir = dir
	cmd.Env = mergedEnv(opts.Env)

	output, err := cmd.CombinedOutput()
	result := &LintResult{
		Output:   strings.TrimSpace(string(output)),
		Findings: ParseFindings(string(output)),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The tool never ran. This is fatal even for an advisory
			// pass: a missing binary is infrastructure, not a finding.
			return nil, model.WrapCLIError(model.ExitStepFailed,
				fmt.Sprintf("failed to run analyzer %q", opts.Tool), err)
		}
		result.ExitCode = exitErr.ExitCode()
		result.Failed = !opts.ExitZero
	}

	return result, nil
}

// findingRegex matches the analyzer's default output format:
//
//	path:line:col: CODE message
//	path:line: CODE message
//
// The code is an uppercase letter followed by digits (E999, F821, C901,
// W503). Summary lines from --count/--statistics do not match.
var findingRegex = regexp.MustCompile(`^(.+?):(\d+)(?::(\d+))?:\s+([A-Z]\d+)\s+(.*)$`)

// ParseFindings extracts structured diagnostics from analyzer output.
// Non-matching lines (statistics, totals, blank lines) are skipped.
func ParseFindings(output string) []model.Finding {
	var findings []model.Finding
	for _, line := range strings.Split(output, "\n") {
		m := findingRegex.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		col := 0
		if m[3] != "" {
			col, _ = strconv.Atoi(m[3])
		}
		findings = append(findings, model.Finding{
			Path:    m[1],
			Line:    lineNo,
			Column:  col,
			Code:    m[4],
			Message: m[5],
		})
	}
	return findings
}

// mergedEnv layers extra variables over the inherited environment.
func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}
