// Package model defines the domain types and value objects for the
// cicada pipeline runner.
//
// This package contains pure data structures with no external dependencies.
// All entities (RunResult, JobResult, StepResult, Finding, etc.) describe a
// single pipeline execution; persisted copies live in the history store as
// JSON-encoded snapshots of these types.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
