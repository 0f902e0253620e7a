package history

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cicada/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id string, start time.Time, status model.RunStatus) *model.RunResult {
	return &model.RunResult{
		ID:         id,
		Pipeline:   "verify",
		Event:      model.EventDispatch,
		Status:     status,
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Jobs: []model.JobResult{
			{ID: "lint", Status: status, Steps: []model.StepResult{
				{Name: "strict", Kind: model.KindLint, Status: status},
			}},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	run := sampleRun("run-1", time.Now().UTC(), model.StatusSuccess)

	require.NoError(t, s.Save(run))

	got, err := s.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Pipeline, got.Pipeline)
	assert.Equal(t, run.Status, got.Status)
	require.Len(t, got.Jobs, 1)
	assert.Equal(t, "lint", got.Jobs[0].ID)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("missing")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitHistoryError, cliErr.Code)
}

func TestList_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(sampleRun("old", base, model.StatusSuccess)))
	require.NoError(t, s.Save(sampleRun("mid", base.Add(time.Hour), model.StatusFailure)))
	require.NoError(t, s.Save(sampleRun("new", base.Add(2*time.Hour), model.StatusSuccess)))

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)
}

func TestList_NewestFirstWithinSameSecond(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 500_000_000, time.UTC)

	// Sub-second spacing where a trimmed fraction would order the keys
	// wrong lexically (".5Z" vs ".51Z").
	require.NoError(t, s.Save(sampleRun("older", base, model.StatusSuccess)))
	require.NoError(t, s.Save(sampleRun("newer", base.Add(10*time.Millisecond), model.StatusFailure)))

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)
	assert.Equal(t, "older", runs[1].ID)

	latest, err := s.List(1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "newer", latest[0].ID)
}

func TestKeyTimestampIsFixedWidth(t *testing.T) {
	trimmed := sampleRun("a", time.Date(2026, 8, 1, 12, 0, 0, 500_000_000, time.UTC), model.StatusSuccess)
	full := sampleRun("b", time.Date(2026, 8, 1, 12, 0, 0, 510_000_000, time.UTC), model.StatusSuccess)

	k1, k2 := key(trimmed), key(full)
	assert.Len(t, k2, len(k1))
	assert.Equal(t, -1, bytes.Compare(k1, k2))
}

func TestList_Limit(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Save(sampleRun(id, base.Add(time.Duration(i)*time.Minute), model.StatusSuccess)))
	}

	runs, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "d", runs[0].ID)
	assert.Equal(t, "c", runs[1].ID)
}

func TestList_Empty(t *testing.T) {
	s := openTestStore(t)
	runs, err := s.List(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
