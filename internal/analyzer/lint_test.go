package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLintOptions_Args_Strict(t *testing.T) {
	opts := LintOptions{
		Path:       "src",
		Select:     []string{"E9", "F63", "F7", "F82"},
		Count:      true,
		Statistics: true,
	}

	assert.Equal(t,
		[]string{"src", "--select=E9,F63,F7,F82", "--count", "--statistics"},
		opts.Args())
}

func TestLintOptions_Args_Permissive(t *testing.T) {
	opts := LintOptions{
		Path:          "src",
		MaxComplexity: 10,
		MaxLineLength: 127,
		ExitZero:      true,
	}

	assert.Equal(t,
		[]string{"src", "--max-complexity=10", "--max-line-length=127", "--exit-zero"},
		opts.Args())
}

func TestFormatOptions_Args_AlwaysCheck(t *testing.T) {
	assert.Equal(t, []string{"--check", "."}, FormatOptions{}.Args())
	assert.Equal(t, []string{"--check", "--diff", "src"}, FormatOptions{Path: "src", Diff: true}.Args())
}

func TestParseFindings(t *testing.T) {
	output := `src/app.py:14:5: F821 undefined name 'client'
src/app.py:200:1: C901 'handle' is too complex (14)
src/util.py:9: E999 SyntaxError: invalid syntax
2     F821 undefined name
random noise line
`

	findings := ParseFindings(output)
	require.Len(t, findings, 3)

	assert.Equal(t, "src/app.py", findings[0].Path)
	assert.Equal(t, 14, findings[0].Line)
	assert.Equal(t, 5, findings[0].Column)
	assert.Equal(t, "F821", findings[0].Code)
	assert.Equal(t, "undefined name 'client'", findings[0].Message)

	assert.Equal(t, "C901", findings[1].Code)

	// Column may be absent.
	assert.Equal(t, 0, findings[2].Column)
	assert.Equal(t, "E999", findings[2].Code)
}

func TestParseFindings_Empty(t *testing.T) {
	assert.Empty(t, ParseFindings(""))
	assert.Empty(t, ParseFindings("all clean\n"))
}

// writeStubTool creates an executable shell script standing in for an
// analyzer. Using a stub keeps these tests hermetic; fidelity to the
// real tools' flag handling lives in the Args tests above.
func writeStubTool(t *testing.T, dir, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tools are POSIX shell scripts")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRunLint_StrictFailsOnFindings(t *testing.T) {
	dir := t.TempDir()
	tool := writeStubTool(t, dir, "stub-lint",
		`echo "src/app.py:14:5: F821 undefined name 'client'"`+"\nexit 1\n")

	result, err := RunLint(context.Background(), dir, LintOptions{
		Tool:   tool,
		Select: []string{"E9", "F82"},
	})
	require.NoError(t, err, "findings are not an infrastructure error")

	assert.True(t, result.Failed)
	assert.Equal(t, 1, result.ExitCode)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "F821", result.Findings[0].Code)
}

// TestRunLint_ExitZeroNeverFails covers the advisory pass: even when
// the tool exits nonzero, the result reports success while keeping the
// findings and the real exit code.
func TestRunLint_ExitZeroNeverFails(t *testing.T) {
	dir := t.TempDir()
	tool := writeStubTool(t, dir, "stub-lint",
		`echo "src/app.py:200:1: C901 'handle' is too complex (14)"`+"\nexit 1\n")

	result, err := RunLint(context.Background(), dir, LintOptions{
		Tool:     tool,
		ExitZero: true,
	})
	require.NoError(t, err)

	assert.False(t, result.Failed, "advisory pass must not fail on findings")
	assert.Equal(t, 1, result.ExitCode, "the underlying exit code is still recorded")
	require.Len(t, result.Findings, 1)
}

func TestRunLint_CleanTree(t *testing.T) {
	dir := t.TempDir()
	tool := writeStubTool(t, dir, "stub-lint", "exit 0\n")

	result, err := RunLint(context.Background(), dir, LintOptions{Tool: tool})
	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.Empty(t, result.Findings)
}

func TestRunLint_MissingToolIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := RunLint(context.Background(), dir, LintOptions{
		Tool:     filepath.Join(dir, "no-such-tool"),
		ExitZero: true,
	})
	require.Error(t, err, "a tool that cannot launch fails even an advisory pass")
}

func TestRunFormatCheck_Mismatch(t *testing.T) {
	dir := t.TempDir()
	tool := writeStubTool(t, dir, "stub-fmt",
		"echo \"would reformat src/app.py\" >&2\nexit 1\n")

	result, err := RunFormatCheck(context.Background(), dir, FormatOptions{Tool: tool})
	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Contains(t, result.Output, "would reformat")
}

// TestRunFormatCheck_DoesNotMutate verifies the check leaves the tree
// untouched, using a stub that would be caught if the runner ever
// dropped the check flag.
func TestRunFormatCheck_DoesNotMutate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.py")
	original := []byte("x=1\n")
	require.NoError(t, os.WriteFile(target, original, 0o644))

	// The stub rewrites the file unless --check is the first argument.
	tool := writeStubTool(t, dir, "stub-fmt",
		`if [ "$1" != "--check" ]; then echo mutated > `+target+`; fi`+"\nexit 0\n")

	_, err := RunFormatCheck(context.Background(), dir, FormatOptions{Tool: tool, Path: target})
	require.NoError(t, err)

	after, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, original, after, "verification mode must not modify files")
}
