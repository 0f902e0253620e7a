package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionOrder_Linear(t *testing.T) {
	jobs := map[string]*Job{
		"build":         {Steps: []*Step{{Run: "true"}}},
		"compose-check": {Needs: StringList{"build"}, Steps: []*Step{{Run: "true"}}},
	}

	order, err := ExecutionOrder(jobs)
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "compose-check"}, order)
}

func TestExecutionOrder_IndependentJobsAreSorted(t *testing.T) {
	jobs := map[string]*Job{
		"lint":   {Steps: []*Step{{Run: "true"}}},
		"format": {Steps: []*Step{{Run: "true"}}},
		"audit":  {Steps: []*Step{{Run: "true"}}},
	}

	order, err := ExecutionOrder(jobs)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "format", "lint"}, order, "independent jobs run in name order")
}

func TestExecutionOrder_Diamond(t *testing.T) {
	jobs := map[string]*Job{
		"build":   {Steps: []*Step{{Run: "true"}}},
		"test":    {Needs: StringList{"build"}, Steps: []*Step{{Run: "true"}}},
		"lint":    {Needs: StringList{"build"}, Steps: []*Step{{Run: "true"}}},
		"publish": {Needs: StringList{"test", "lint"}, Steps: []*Step{{Run: "true"}}},
	}

	order, err := ExecutionOrder(jobs)
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "lint", "test", "publish"}, order)
}

func TestExecutionOrder_CycleDetected(t *testing.T) {
	jobs := map[string]*Job{
		"a": {Needs: StringList{"c"}, Steps: []*Step{{Run: "true"}}},
		"b": {Needs: StringList{"a"}, Steps: []*Step{{Run: "true"}}},
		"c": {Needs: StringList{"b"}, Steps: []*Step{{Run: "true"}}},
	}

	_, err := ExecutionOrder(jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a, b, c", "cycle participants are listed in sorted order")
}

func TestExecutionOrder_SelfDependency(t *testing.T) {
	jobs := map[string]*Job{
		"a": {Needs: StringList{"a"}, Steps: []*Step{{Run: "true"}}},
	}

	_, err := ExecutionOrder(jobs)
	require.Error(t, err)
}
