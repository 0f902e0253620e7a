// Package watch reruns pipelines when their definitions or the
// watched project tree change on disk.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/shinji-kodama/cicada/internal/model"
)

// DefaultDebounce batches the event bursts editors and build tools
// produce into a single rerun.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Paths are the files and directories to watch. Directories are
	// walked once and every subdirectory is registered; dotted
	// directories such as .git are skipped.
	Paths []string

	// Debounce is how long to wait after the last event before
	// triggering. Zero means DefaultDebounce.
	Debounce time.Duration

	// Logger receives watch lifecycle events. Nil means no logging.
	Logger hclog.Logger
}

// Watcher invokes a callback after filesystem activity settles.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   hclog.Logger
}

// New registers the given paths and returns a ready Watcher.
func New(opts Options) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to start filesystem watcher", err)
	}

	w := &Watcher{
		fs:       fs,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = hclog.NewNullLogger()
	}

	for _, path := range opts.Paths {
		if err := w.add(path); err != nil {
			_ = fs.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot watch "+path, err)
	}
	if !info.IsDir() {
		if err := w.fs.Add(path); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot watch "+path, err)
		}
		return nil
	}

	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != path && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot watch "+p, err)
		}
		w.logger.Debug("watching directory", "path", p)
		return nil
	})
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run blocks until ctx is cancelled, calling trigger after each burst
// of filesystem events quiets down. The path passed to trigger is the
// last file that changed. A new directory created under a watched tree
// is registered so later writes inside it are seen too.
func (w *Watcher) Run(ctx context.Context, trigger func(path string)) error {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		lastHit string
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.add(event.Name)
				}
			}
			w.logger.Debug("filesystem event", "op", event.Op.String(), "path", event.Name)
			lastHit = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			trigger(lastHit)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// relevant filters out events that never affect a pipeline run:
// chmods, editor swap files and anything under a dotted directory.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(event.Name), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}
