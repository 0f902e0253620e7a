package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shinji-kodama/cicada/internal/pipeline"
)

func TestDescribeTriggersNilMeansManualOnly(t *testing.T) {
	assert.Equal(t, []string{"workflow_dispatch (manual only)"}, DescribeTriggers(nil))
}

func TestDescribeTriggersAllEvents(t *testing.T) {
	triggers := &pipeline.Triggers{
		Push:        &pipeline.BranchFilter{Branches: []string{"main"}},
		PullRequest: &pipeline.BranchFilter{},
		Dispatch:    true,
	}

	assert.Equal(t,
		[]string{"push(main)", "pull_request", "workflow_dispatch"},
		DescribeTriggers(triggers))
}

func TestDescribeTriggersMultipleBranches(t *testing.T) {
	triggers := &pipeline.Triggers{
		Push: &pipeline.BranchFilter{Branches: []string{"main", "develop"}},
	}

	assert.Equal(t, []string{"push(main,develop)"}, DescribeTriggers(triggers))
}

func TestListingOrderFollowsDependencies(t *testing.T) {
	jobs := map[string]*pipeline.Job{
		"deploy": {Needs: pipeline.StringList{"build"}},
		"build":  {},
	}

	order, ordered := listingOrder(jobs)
	assert.True(t, ordered)
	assert.Equal(t, []string{"build", "deploy"}, order)
}

func TestListingOrderCyclicPipelineIsSorted(t *testing.T) {
	jobs := map[string]*pipeline.Job{
		"c": {Needs: pipeline.StringList{"a"}},
		"a": {Needs: pipeline.StringList{"b"}},
		"b": {Needs: pipeline.StringList{"c"}},
	}

	order, ordered := listingOrder(jobs)
	assert.False(t, ordered)
	assert.Equal(t, []string{"a", "b", "c"}, order, "cyclic jobs list in stable sorted order")
}

func TestDescribeTriggersEmptyBlockFallsBackToManual(t *testing.T) {
	assert.Equal(t,
		[]string{"workflow_dispatch (manual only)"},
		DescribeTriggers(&pipeline.Triggers{}))
}
