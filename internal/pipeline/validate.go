package pipeline

import (
	"fmt"
	"sort"

	"github.com/shinji-kodama/cicada/internal/model"
)

// ValidationError represents a specific validation failure in a
// pipeline definition.
type ValidationError struct {
	// Field is the definition path that failed validation
	// (e.g., "jobs.lint.steps[0]").
	Field string

	// Message describes what is wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipeline validation error: %s: %s", e.Field, e.Message)
}

// Validate performs schema checks on a loaded pipeline and returns every
// problem found (empty list = valid). Execution must not be attempted on
// a pipeline with validation errors.
//
// Checks performed:
//   - name must be present
//   - jobs must be non-empty, with valid identifiers
//   - every job must have at least one step
//   - every step must have exactly one of run/uses
//   - uses must name a builtin step kind
//   - needs must reference defined jobs
//   - the needs graph must be acyclic
func Validate(p *Pipeline) []ValidationError {
	var errs []ValidationError

	if p.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name field is required",
		})
	}

	if len(p.Jobs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "jobs",
			Message: "at least one job is required",
		})
		return errs
	}

	// Iterate jobs in sorted order so repeated validation of the same
	// file reports errors in a stable order.
	ids := make([]string, 0, len(p.Jobs))
	for id := range p.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		job := p.Jobs[id]
		field := "jobs." + id

		if err := model.ValidateJobID(id); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
		if job == nil {
			errs = append(errs, ValidationError{Field: field, Message: "job definition is empty"})
			continue
		}

		for _, dep := range job.Needs {
			if _, ok := p.Jobs[dep]; !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".needs",
					Message: fmt.Sprintf("needs references unknown job %q", dep),
				})
			}
		}

		if len(job.Steps) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".steps",
				Message: "at least one step is required",
			})
			continue
		}

		for i, step := range job.Steps {
			stepField := fmt.Sprintf("%s.steps[%d]", field, i)
			if step == nil {
				errs = append(errs, ValidationError{Field: stepField, Message: "step is empty"})
				continue
			}
			errs = append(errs, validateStep(stepField, step)...)
		}
	}

	// Cycle detection runs only when every needs reference resolves;
	// otherwise the ordering error would just repeat the unknown-job one.
	if !hasUnknownNeeds(p) {
		if _, err := ExecutionOrder(p.Jobs); err != nil {
			errs = append(errs, ValidationError{
				Field:   "jobs",
				Message: err.Error(),
			})
		}
	}

	return errs
}

// validateStep checks a single step's action and parameters.
func validateStep(field string, step *Step) []ValidationError {
	var errs []ValidationError

	hasRun := step.Run != ""
	hasUses := step.Uses != ""

	switch {
	case hasRun && hasUses:
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "step must not set both run and uses",
		})
	case !hasRun && !hasUses:
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "step must set either run or uses",
		})
	case hasUses:
		if _, err := model.ParseStepKind(step.Uses); err != nil {
			errs = append(errs, ValidationError{Field: field + ".uses", Message: err.Error()})
		} else {
			errs = append(errs, validateStepParams(field, step)...)
		}
	case hasRun && len(step.With) > 0:
		errs = append(errs, ValidationError{
			Field:   field + ".with",
			Message: "with parameters apply only to uses steps",
		})
	}

	return errs
}

// validateStepParams applies per-kind parameter checks. Only cheap
// structural problems are caught here; path existence and tool
// availability are execution-time concerns.
func validateStepParams(field string, step *Step) []ValidationError {
	var errs []ValidationError

	kind, err := model.ParseStepKind(step.Uses)
	if err != nil {
		return nil // already reported by validateStep
	}

	switch kind {
	case model.KindEnvFile:
		if len(step.StringMapParam("values")) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".with.values",
				Message: "env-file requires a non-empty values map",
			})
		}
	case model.KindImageBuild:
		for _, tag := range step.StringSliceParam("tags") {
			if tag == "" {
				errs = append(errs, ValidationError{
					Field:   field + ".with.tags",
					Message: "image tags must not be empty strings",
				})
			}
		}
	case model.KindLint:
		if n := step.IntParam("max-complexity", 0); n < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".with.max-complexity",
				Message: "max-complexity must not be negative",
			})
		}
		if n := step.IntParam("max-line-length", 0); n < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".with.max-line-length",
				Message: "max-line-length must not be negative",
			})
		}
	}

	return errs
}

// hasUnknownNeeds reports whether any job references an undefined job.
func hasUnknownNeeds(p *Pipeline) bool {
	for _, job := range p.Jobs {
		if job == nil {
			continue
		}
		for _, dep := range job.Needs {
			if _, ok := p.Jobs[dep]; !ok {
				return true
			}
		}
	}
	return false
}
