package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findError reports whether any validation error touches the given field.
func findError(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_ValidPipelines(t *testing.T) {
	for _, name := range []string{"verify.yml", "container.yml"} {
		p, err := Load(filepath.Join("testdata", name))
		require.NoError(t, err)
		assert.Empty(t, Validate(p), "%s should validate cleanly", name)
	}
}

// TestValidate_CollectsAllErrors loads a deliberately broken fixture and
// checks that every problem is reported in one pass rather than only the
// first.
func TestValidate_CollectsAllErrors(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "invalid.yml"))
	require.NoError(t, err, "invalid.yml is well-formed YAML; its problems are schema-level")

	errs := Validate(p)
	require.NotEmpty(t, errs)

	assert.True(t, findError(errs, "name"), "missing name should be reported")
	assert.True(t, findError(errs, "jobs.broken.steps[0]"), "step with no action should be reported")
	assert.True(t, findError(errs, "jobs.broken.steps[1]"), "step with both run and uses should be reported")
	assert.True(t, findError(errs, "jobs.ghost.needs"), "unknown needs target should be reported")
	assert.True(t, findError(errs, "jobs.ghost.steps[0].uses"), "unknown step kind should be reported")
	assert.True(t, findError(errs, "jobs.empty.steps"), "empty steps list should be reported")
}

func TestValidate_EmptyJobs(t *testing.T) {
	p := &Pipeline{Name: "empty"}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, "jobs", errs[0].Field)
}

func TestValidate_Cycle(t *testing.T) {
	p := &Pipeline{
		Name: "cyclic",
		Jobs: map[string]*Job{
			"a": {Needs: StringList{"b"}, Steps: []*Step{{Run: "true"}}},
			"b": {Needs: StringList{"a"}, Steps: []*Step{{Run: "true"}}},
		},
	}

	errs := Validate(p)
	require.NotEmpty(t, errs)
	assert.True(t, findError(errs, "jobs"))
	assert.Contains(t, errs[len(errs)-1].Message, "cycle")
}

func TestValidate_RunStepWithParams(t *testing.T) {
	p := &Pipeline{
		Name: "p",
		Jobs: map[string]*Job{
			"a": {Steps: []*Step{{Run: "true", With: map[string]any{"path": "src"}}}},
		},
	}

	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, "jobs.a.steps[0].with", errs[0].Field)
}

func TestValidate_EnvFileWithoutValues(t *testing.T) {
	p := &Pipeline{
		Name: "p",
		Jobs: map[string]*Job{
			"a": {Steps: []*Step{{Uses: "env-file", With: map[string]any{"path": ".env"}}}},
		},
	}

	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, "jobs.a.steps[0].with.values", errs[0].Field)
}

func TestValidate_NegativeLintThresholds(t *testing.T) {
	p := &Pipeline{
		Name: "p",
		Jobs: map[string]*Job{
			"a": {Steps: []*Step{{Uses: "lint", With: map[string]any{"max-complexity": -1}}}},
		},
	}

	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "max-complexity")
}
