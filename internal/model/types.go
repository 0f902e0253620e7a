package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RunStatus represents the outcome of a run, job, or step.
// The transitions are strictly forward:
//
//	[Pending] → Running → Success | Failure | Skipped
//
// A skipped job is one whose dependencies did not all succeed; a skipped
// step is one after the first failure within its job.
type RunStatus string

const (
	// StatusSuccess indicates the unit completed with no failing step.
	StatusSuccess RunStatus = "success"

	// StatusFailure indicates at least one step failed and stopped the unit.
	StatusFailure RunStatus = "failure"

	// StatusSkipped indicates the unit was never executed, either because
	// a job dependency did not succeed or because an earlier step in the
	// same job failed.
	StatusSkipped RunStatus = "skipped"
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsValid checks whether the RunStatus value is one of the
// predefined valid states.
func (s RunStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusSkipped:
		return true
	default:
		return false
	}
}

// ParseRunStatus converts a string to a RunStatus.
// Returns an error if the string does not match any valid status.
func ParseRunStatus(s string) (RunStatus, error) {
	status := RunStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid run status: %q (valid: success, failure, skipped)", s)
	}
	return status, nil
}

// Event represents the trigger event a run was invoked with. The runner
// has no webhook surface, so the event is always supplied explicitly;
// it exists to honor the trigger declarations in pipeline files.
type Event string

const (
	// EventPush corresponds to a version-control push on a branch.
	EventPush Event = "push"

	// EventPullRequest corresponds to a pull request targeting a branch.
	EventPullRequest Event = "pull_request"

	// EventDispatch corresponds to manual on-demand invocation.
	EventDispatch Event = "workflow_dispatch"
)

// String returns the string representation of Event.
func (e Event) String() string {
	return string(e)
}

// IsValid checks whether the Event value is one of the predefined events.
func (e Event) IsValid() bool {
	switch e {
	case EventPush, EventPullRequest, EventDispatch:
		return true
	default:
		return false
	}
}

// ParseEvent converts a string to an Event.
// Returns an error if the string does not match any valid event.
func ParseEvent(s string) (Event, error) {
	event := Event(strings.ToLower(s))
	if !event.IsValid() {
		return "", fmt.Errorf("invalid event: %q (valid: push, pull_request, workflow_dispatch)", s)
	}
	return event, nil
}

// StepKind identifies a builtin step implementation. A step either runs a
// shell command (KindRun) or uses one of the builtin kinds below.
type StepKind string

const (
	// KindRun executes a shell command.
	KindRun StepKind = "run"

	// KindLint invokes an external static analyzer over a target tree.
	KindLint StepKind = "lint"

	// KindFormatCheck invokes a formatter in verification-only mode.
	// It never modifies files.
	KindFormatCheck StepKind = "format-check"

	// KindImageBuild builds a container image from a build definition file.
	KindImageBuild StepKind = "image-build"

	// KindEnvFile materializes a dotenv file of placeholder values.
	KindEnvFile StepKind = "env-file"

	// KindComposeConfig parses, interpolates, and normalizes a compose
	// definition without touching the container engine.
	KindComposeConfig StepKind = "compose-config"

	// KindComposeBuild builds all declared compose services.
	KindComposeBuild StepKind = "compose-build"
)

// String returns the string representation of StepKind.
func (k StepKind) String() string {
	return string(k)
}

// IsValid checks whether the StepKind value is one of the builtin kinds.
func (k StepKind) IsValid() bool {
	switch k {
	case KindRun, KindLint, KindFormatCheck, KindImageBuild,
		KindEnvFile, KindComposeConfig, KindComposeBuild:
		return true
	default:
		return false
	}
}

// ParseStepKind converts a string to a StepKind.
// Returns an error if the string does not name a builtin kind.
func ParseStepKind(s string) (StepKind, error) {
	kind := StepKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid step kind: %q (valid: run, lint, format-check, image-build, env-file, compose-config, compose-build)", s)
	}
	return kind, nil
}

// Finding is a single analyzer diagnostic, parsed from the tool's
// "path:line:col: CODE message" output format.
type Finding struct {
	// Path is the file the finding refers to, as printed by the tool
	// (usually relative to the analyzed tree).
	Path string `json:"path"`

	// Line is the 1-based line number of the finding.
	Line int `json:"line"`

	// Column is the 1-based column number, or 0 when the tool omits it.
	Column int `json:"column,omitempty"`

	// Code is the rule identifier (e.g., "F821", "E999").
	Code string `json:"code"`

	// Message is the human-readable diagnostic text.
	Message string `json:"message"`
}

// String returns the finding in the tool's own single-line format.
func (f Finding) String() string {
	if f.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s %s", f.Path, f.Line, f.Column, f.Code, f.Message)
	}
	return fmt.Sprintf("%s:%d: %s %s", f.Path, f.Line, f.Code, f.Message)
}

// StepResult records the outcome of a single step execution.
type StepResult struct {
	// Name is the step's display name (falls back to its kind).
	Name string `json:"name"`

	// Kind identifies the step implementation that ran.
	Kind StepKind `json:"kind"`

	// Status is the step outcome. A step with ContinueOnError set may
	// carry StatusSuccess while ToolExit is nonzero.
	Status RunStatus `json:"status"`

	// Output is the captured combined stdout/stderr of the underlying
	// tool, trimmed. Empty for steps that invoke no external tool.
	Output string `json:"output,omitempty"`

	// Error is the failure description when Status is StatusFailure.
	Error string `json:"error,omitempty"`

	// ToolExit is the exit code of the invoked external tool, when one ran.
	ToolExit int `json:"toolExit"`

	// Findings holds analyzer diagnostics produced by lint steps.
	// Recorded for permissive passes too, even though they succeed.
	Findings []Finding `json:"findings,omitempty"`

	// Duration is the wall-clock time the step took.
	Duration time.Duration `json:"duration"`
}

// JobResult records the outcome of a single job execution.
type JobResult struct {
	// ID is the job's identifier key in the pipeline file.
	ID string `json:"id"`

	// Name is the job's display name (falls back to the ID).
	Name string `json:"name"`

	// Status is the job outcome.
	Status RunStatus `json:"status"`

	// Steps holds per-step results in execution order. Skipped steps
	// after a failure are included with StatusSkipped.
	Steps []StepResult `json:"steps,omitempty"`

	// Duration is the wall-clock time the job took.
	Duration time.Duration `json:"duration"`
}

// RunResult is the root record of a pipeline execution. It is what the
// history store persists and what the CLI renders.
type RunResult struct {
	// ID is a UUID assigned when the run starts.
	ID string `json:"id"`

	// Pipeline is the pipeline's declared name.
	Pipeline string `json:"pipeline"`

	// PipelinePath is the file the pipeline was loaded from.
	PipelinePath string `json:"pipelinePath,omitempty"`

	// Event is the trigger event the run was invoked with.
	Event Event `json:"event"`

	// Branch is the branch the event refers to, if any.
	Branch string `json:"branch,omitempty"`

	// Status is the overall run outcome: failure if any job failed,
	// success otherwise (skipped jobs do not fail a run on their own,
	// but a job skipped because its dependency failed implies a failed
	// dependency job, which does).
	Status RunStatus `json:"status"`

	// Jobs holds per-job results in execution order.
	Jobs []JobResult `json:"jobs,omitempty"`

	// StartedAt and FinishedAt bound the run in wall-clock time.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Findings returns all analyzer findings recorded anywhere in the run,
// in execution order. Used by the SARIF report command.
func (r *RunResult) Findings() []Finding {
	var all []Finding
	for _, job := range r.Jobs {
		for _, step := range job.Steps {
			all = append(all, step.Findings...)
		}
	}
	return all
}

// idRegex validates job identifiers: alphanumeric plus hyphens and
// underscores, starting with a letter or underscore. This matches what
// hosted CI systems accept for job keys.
var idRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidateJobID checks if the given identifier is a valid job key.
func ValidateJobID(id string) error {
	if id == "" {
		return fmt.Errorf("job id must not be empty")
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("invalid job id %q: must start with a letter or underscore and contain only alphanumerics, hyphens, and underscores", id)
	}
	return nil
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// outer automation to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidPipeline indicates a pipeline file failed to load or
	// did not pass validation.
	ExitInvalidPipeline ExitCode = 2

	// ExitStepFailed indicates the run executed and at least one job failed.
	ExitStepFailed ExitCode = 3

	// ExitDockerUnavailable indicates the Docker daemon is not accessible.
	ExitDockerUnavailable ExitCode = 4

	// ExitPipelineNotFound indicates no pipeline file matched the given
	// path, name filter, or trigger event.
	ExitPipelineNotFound ExitCode = 5

	// ExitHistoryError indicates the run-history store could not be
	// opened, read, or written.
	ExitHistoryError ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
