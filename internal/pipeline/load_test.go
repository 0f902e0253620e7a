package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cicada/internal/model"
)

// --- Load tests ---

// TestLoad_Verify parses the lint/format pipeline fixture and checks
// the trigger block and step parameters come through intact.
func TestLoad_Verify(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "verify.yml"))
	require.NoError(t, err, "Load should succeed for a valid pipeline file")

	assert.Equal(t, "verify", p.Name)
	assert.True(t, filepath.IsAbs(p.Path), "Path should be absolute")

	// Trigger block: push and pull_request scoped to main, plus dispatch.
	require.NotNil(t, p.On)
	require.NotNil(t, p.On.Push)
	assert.Equal(t, []string{"main"}, p.On.Push.Branches)
	require.NotNil(t, p.On.PullRequest)
	assert.Equal(t, []string{"main"}, p.On.PullRequest.Branches)
	assert.True(t, p.On.Dispatch)

	// Jobs and steps.
	require.Len(t, p.Jobs, 2)
	lint := p.Jobs["lint"]
	require.NotNil(t, lint)
	require.Len(t, lint.Steps, 2)

	strict := lint.Steps[0]
	assert.Equal(t, model.KindLint, strict.Kind())
	assert.Equal(t, []string{"E9", "F63", "F7", "F82"}, strict.StringSliceParam("select"))
	assert.False(t, strict.BoolParam("exit-zero", false))
	assert.Equal(t, "src", strict.StringParam("path", "."))

	advisory := lint.Steps[1]
	assert.True(t, advisory.BoolParam("exit-zero", false))
	assert.Equal(t, 10, advisory.IntParam("max-complexity", 0))
	assert.Equal(t, 127, advisory.IntParam("max-line-length", 0))
}

// TestLoad_Container checks needs parsing (scalar form) and the env-file
// values map.
func TestLoad_Container(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "container.yml"))
	require.NoError(t, err)

	compose := p.Jobs["compose-check"]
	require.NotNil(t, compose)
	assert.Equal(t, StringList{"build"}, compose.Needs, "scalar needs should normalize to a one-element list")

	envStep := compose.Steps[0]
	values := envStep.StringMapParam("values")
	require.Len(t, values, 3)
	assert.Equal(t, "123456", values["API_ID"])
	assert.Equal(t, "dummy_hash_for_ci", values["API_HASH"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "does-not-exist.yml"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInvalidPipeline, cliErr.Code)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

// --- Trigger form tests ---

func TestTriggers_ScalarForm(t *testing.T) {
	p := loadFromString(t, "name: scalar\non: push\njobs:\n  a:\n    steps:\n      - run: true\n")

	require.NotNil(t, p.On.Push)
	assert.Empty(t, p.On.Push.Branches, "scalar form declares the event with no branch filter")
	assert.Nil(t, p.On.PullRequest)
	assert.False(t, p.On.Dispatch)
}

func TestTriggers_SequenceForm(t *testing.T) {
	p := loadFromString(t, "name: seq\non: [push, workflow_dispatch]\njobs:\n  a:\n    steps:\n      - run: true\n")

	require.NotNil(t, p.On.Push)
	assert.True(t, p.On.Dispatch)
	assert.Nil(t, p.On.PullRequest)
}

func TestTriggers_Matching(t *testing.T) {
	p := loadFromString(t, "name: m\non:\n  push:\n    branches: [main]\n  workflow_dispatch:\njobs:\n  a:\n    steps:\n      - run: true\n")

	assert.True(t, p.On.Matches(model.EventPush, "main"))
	assert.False(t, p.On.Matches(model.EventPush, "feature"), "branch filter should exclude other branches")
	assert.False(t, p.On.Matches(model.EventPullRequest, "main"), "undeclared events never match")
	assert.True(t, p.On.Matches(model.EventDispatch, ""))
}

func TestTriggers_NilMatchesDispatchOnly(t *testing.T) {
	// A pipeline with no "on" block is manual-only.
	var triggers *Triggers
	assert.True(t, triggers.Matches(model.EventDispatch, ""))
	assert.False(t, triggers.Matches(model.EventPush, "main"))
}

// --- Discover / LoadAll tests ---

func TestDiscover_Directory(t *testing.T) {
	files, err := Discover("testdata")
	require.NoError(t, err)
	// Sorted: container.yml, invalid.yml, verify.yml
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join("testdata", "container.yml"), files[0])
	assert.Equal(t, filepath.Join("testdata", "verify.yml"), files[2])
}

func TestDiscover_SingleFile(t *testing.T) {
	files, err := Discover(filepath.Join("testdata", "verify.yml"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "verify.yml")}, files)
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	_, err := Discover(t.TempDir())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitPipelineNotFound, cliErr.Code)
}

func TestLoadAll(t *testing.T) {
	pipelines, err := LoadAll("testdata")
	require.NoError(t, err)
	require.Len(t, pipelines, 3)
	assert.Equal(t, "container", pipelines[0].Name)
}

// loadFromString writes the document to a temp file and loads it.
// Keeping everything on the Load path exercises the same decode
// configuration production uses.
func loadFromString(t *testing.T, doc string) *Pipeline {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	p, err := Load(path)
	require.NoError(t, err)
	return p
}
