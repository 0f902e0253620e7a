// Package pipeline loads, validates, and orders declarative pipeline
// definitions.
//
// A pipeline file is YAML with a name, a trigger block ("on"), and a map
// of jobs. Jobs declare dependencies via "needs" and hold an ordered list
// of steps; a step either runs a shell command ("run") or names a builtin
// step kind ("uses") with parameters ("with").
//
// Loading and validation are separate phases: Load parses the YAML into
// structs and fails only on malformed documents, while Validate collects
// every schema problem (unknown step kinds, missing steps, dependency
// cycles) into a list so a single invocation reports all of them.
package pipeline
