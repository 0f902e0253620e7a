package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevantFiltersNoise(t *testing.T) {
	w := &Watcher{}

	assert.False(t, w.relevant(fsnotify.Event{Name: "a.py", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "a.py~", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: ".a.py.swp", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "build.tmp", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "repo/.git/index", Op: fsnotify.Write}))

	assert.True(t, w.relevant(fsnotify.Event{Name: "a.py", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "src/handlers.py", Op: fsnotify.Create}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "ci/verify.yml", Op: fsnotify.Write}))
}

func TestNewRejectsMissingPath(t *testing.T) {
	_, err := New(Options{Paths: []string{filepath.Join(t.TempDir(), "missing")}})
	require.Error(t, err)
}

func TestWatcherTriggersAfterWrite(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Options{Paths: []string{dir}, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	triggered := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(path string) {
			select {
			case triggered <- path:
			default:
			}
		})
	}()

	// Give the watch loop a moment to start before producing events.
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(file, []byte("print('hi')\n"), 0o644))

	select {
	case path := <-triggered:
		assert.Equal(t, file, path)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a trigger after writing a watched file")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestWatcherBatchesBursts(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Options{Paths: []string{dir}, Debounce: 200 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var count int
	counted := make(chan struct{}, 16)
	go func() {
		_ = w.Run(ctx, func(string) {
			count++
			counted <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// A burst of writes inside the debounce window collapses into one
	// trigger.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-counted:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a trigger after the write burst")
	}

	// Nothing else should arrive once the burst has settled.
	select {
	case <-counted:
		t.Fatal("burst produced more than one trigger")
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, 1, count)
}
