package pipeline

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/shinji-kodama/cicada/internal/model"
)

// Pipeline is a parsed pipeline definition. The YAML layout mirrors the
// hosted-CI workflow shape so existing definitions translate directly:
//
//	name: verify
//	on:
//	  push:
//	    branches: [main]
//	  pull_request:
//	    branches: [main]
//	  workflow_dispatch:
//	jobs:
//	  lint:
//	    steps:
//	      - uses: lint
//	        with: {select: [E9, F63, F7, F82]}
type Pipeline struct {
	// Name is the pipeline's display name. Required.
	Name string `yaml:"name"`

	// On declares the trigger surface. A nil On makes the pipeline
	// manual-only (it matches workflow_dispatch and nothing else).
	On *Triggers `yaml:"on"`

	// Jobs maps job identifiers to their definitions.
	Jobs map[string]*Job `yaml:"jobs"`

	// Path is the file this pipeline was loaded from. Set by Load,
	// not part of the YAML schema.
	Path string `yaml:"-"`
}

// Triggers is the parsed "on" block. The YAML form is flexible: a single
// event name, a list of event names, or a map from event name to an
// optional branch filter. All three forms normalize into this struct.
type Triggers struct {
	// Push is non-nil when the push event is declared. An empty
	// BranchFilter matches every branch.
	Push *BranchFilter

	// PullRequest is non-nil when the pull_request event is declared.
	PullRequest *BranchFilter

	// Dispatch is true when workflow_dispatch is declared.
	Dispatch bool
}

// BranchFilter restricts a branch-scoped trigger to a set of branches.
type BranchFilter struct {
	// Branches lists the branch names the trigger applies to.
	// Empty means all branches.
	Branches []string `yaml:"branches"`
}

// UnmarshalYAML accepts the three YAML forms of the "on" block:
// scalar ("on: push"), sequence ("on: [push, pull_request]"), and
// mapping with per-event branch filters.
func (t *Triggers) UnmarshalYAML(b []byte) error {
	// Scalar form: a single event name.
	var scalar string
	if err := yaml.Unmarshal(b, &scalar); err == nil && scalar != "" {
		return t.enable(scalar, nil)
	}

	// Sequence form: a list of event names.
	var seq []string
	if err := yaml.Unmarshal(b, &seq); err == nil && len(seq) > 0 {
		for _, name := range seq {
			if err := t.enable(name, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Mapping form: event name to optional branch filter. A key with a
	// null value ("workflow_dispatch:") yields a nil *BranchFilter, which
	// still means "declared".
	var m map[string]*BranchFilter
	if err := yaml.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("invalid trigger block: %w", err)
	}
	for name, filter := range m {
		if err := t.enable(name, filter); err != nil {
			return err
		}
	}
	return nil
}

// enable records a declared event. A nil filter normalizes to an empty
// BranchFilter so "declared without branches" is distinguishable from
// "not declared" by pointer nilness alone.
func (t *Triggers) enable(name string, filter *BranchFilter) error {
	event, err := model.ParseEvent(name)
	if err != nil {
		return err
	}
	if filter == nil {
		filter = &BranchFilter{}
	}
	switch event {
	case model.EventPush:
		t.Push = filter
	case model.EventPullRequest:
		t.PullRequest = filter
	case model.EventDispatch:
		t.Dispatch = true
	}
	return nil
}

// Matches reports whether this trigger block declares the given event,
// and, for branch-scoped events, whether the branch passes the filter.
// A nil Triggers (no "on" block) matches only manual dispatch.
func (t *Triggers) Matches(event model.Event, branch string) bool {
	if t == nil {
		return event == model.EventDispatch
	}
	switch event {
	case model.EventPush:
		return t.Push != nil && t.Push.matches(branch)
	case model.EventPullRequest:
		return t.PullRequest != nil && t.PullRequest.matches(branch)
	case model.EventDispatch:
		return t.Dispatch
	default:
		return false
	}
}

// matches reports whether the branch passes the filter.
// An empty filter matches everything, including an empty branch.
func (f *BranchFilter) matches(branch string) bool {
	if len(f.Branches) == 0 {
		return true
	}
	for _, b := range f.Branches {
		if b == branch {
			return true
		}
	}
	return false
}

// Job is a named group of sequential steps, optionally gated on other
// jobs via Needs. A job with a failed or skipped dependency is skipped.
type Job struct {
	// Name is the job's display name; the map key is used when empty.
	Name string `yaml:"name"`

	// Needs lists job identifiers that must succeed before this job runs.
	// The YAML form may be a single string or a list.
	Needs StringList `yaml:"needs"`

	// Steps is the ordered list of steps. Must be non-empty.
	Steps []*Step `yaml:"steps"`
}

// Step is a single unit of work within a job. Exactly one of Run or Uses
// must be set; Validate enforces this.
type Step struct {
	// Name is the step's display name.
	Name string `yaml:"name"`

	// Run is a shell command executed with "sh -c".
	Run string `yaml:"run"`

	// Uses names a builtin step kind (lint, format-check, image-build,
	// env-file, compose-config, compose-build).
	Uses string `yaml:"uses"`

	// With holds parameters for the builtin named by Uses.
	With map[string]any `yaml:"with"`

	// Env holds environment variables applied to the step's tool
	// invocation, overriding the inherited process environment.
	Env map[string]string `yaml:"env"`

	// WorkingDirectory is the directory the step runs in, relative to
	// the pipeline's working tree when not absolute.
	WorkingDirectory string `yaml:"working-directory"`

	// ContinueOnError records a step failure in the results without
	// failing the job.
	ContinueOnError bool `yaml:"continue-on-error"`
}

// DisplayName returns the step's name, falling back to its action.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Uses != "" {
		return s.Uses
	}
	return "run"
}

// Kind returns the step's builtin kind, or KindRun for shell steps.
// Call only on steps that passed validation.
func (s *Step) Kind() model.StepKind {
	if s.Uses == "" {
		return model.KindRun
	}
	kind, err := model.ParseStepKind(s.Uses)
	if err != nil {
		return model.StepKind(s.Uses)
	}
	return kind
}

// StringList accepts both a YAML scalar and a YAML sequence of strings.
// Hosted CI allows "needs: build" as shorthand for "needs: [build]";
// this type preserves that convenience.
type StringList []string

// UnmarshalYAML implements the flexible scalar-or-sequence decoding.
func (l *StringList) UnmarshalYAML(b []byte) error {
	var single string
	if err := yaml.Unmarshal(b, &single); err == nil {
		if single == "" {
			*l = nil
			return nil
		}
		*l = StringList{single}
		return nil
	}

	var many []string
	if err := yaml.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("expected a string or list of strings: %w", err)
	}
	*l = StringList(many)
	return nil
}

// StringParam reads a string parameter from a step's With map, applying
// a default when the key is absent. Integer and boolean YAML values are
// stringified so "max-line-length: 127" works without quoting.
func (s *Step) StringParam(key, fallback string) string {
	v, ok := s.With[key]
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// IntParam reads an integer parameter from a step's With map.
func (s *Step) IntParam(key string, fallback int) int {
	v, ok := s.With[key]
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case uint64:
		return int(val)
	case float64:
		return int(val)
	default:
		return fallback
	}
}

// BoolParam reads a boolean parameter from a step's With map.
func (s *Step) BoolParam(key string, fallback bool) bool {
	v, ok := s.With[key]
	if !ok || v == nil {
		return fallback
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

// StringSliceParam reads a list parameter from a step's With map.
// A scalar value is treated as a single-element list.
func (s *Step) StringSliceParam(key string) []string {
	v, ok := s.With[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}

// StringMapParam reads a map parameter from a step's With map.
// Values are stringified, keys must be strings.
func (s *Step) StringMapParam(key string) map[string]string {
	v, ok := s.With[key]
	if !ok || v == nil {
		return nil
	}
	out := make(map[string]string)
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			out[k] = fmt.Sprintf("%v", item)
		}
	case map[string]string:
		for k, item := range val {
			out[k] = item
		}
	case map[any]any:
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = fmt.Sprintf("%v", item)
		}
	default:
		return nil
	}
	return out
}
