// Package cli — watch.go implements the "cicada watch" command.
//
// Watch runs the matching pipelines once, then blocks and reruns them
// whenever the watched tree changes. Filesystem events are debounced so
// an editor save burst triggers a single rerun. Failures do not end the
// watch; the next change gets a fresh run.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cicada/internal/engine"
	"github.com/shinji-kodama/cicada/internal/history"
	"github.com/shinji-kodama/cicada/internal/model"
	"github.com/shinji-kodama/cicada/internal/watch"
)

// watchFlags holds the flag values for the watch command.
type watchFlags struct {
	event        string
	branch       string
	pipelineName string
	historyDB    string
	noHistory    bool
	paths        []string
	debounce     time.Duration
}

// NewWatchCommand creates the "watch" cobra command.
func NewWatchCommand() *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch [file|dir]",
		Short: "Rerun pipelines when watched files change",
		Long: `Run the matching pipelines, then watch the project tree and rerun
them after every change. Stop with Ctrl-C.

By default the current directory is watched; --path adds or replaces
watched locations.

Examples:
  cicada watch
  cicada watch ci/verify.yml --event push --branch main
  cicada watch --path src --path ci`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.event, "event", "",
		"Trigger event: push, pull_request, workflow_dispatch")
	cmd.Flags().StringVar(&flags.branch, "branch", "", "Branch the event refers to")
	cmd.Flags().StringVar(&flags.pipelineName, "pipeline", "", "Only run the pipeline with this name")
	cmd.Flags().StringVar(&flags.historyDB, "history-db", "", "History database file")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record runs")
	cmd.Flags().StringArrayVar(&flags.paths, "path", nil, "Path to watch (repeatable, default .)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce,
		"Settle time after the last change before rerunning")

	return cmd
}

func runWatch(ctx context.Context, flags *watchFlags, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eventStr := flags.event
	if eventStr == "" {
		eventStr = cfg.Event
	}
	event, err := model.ParseEvent(eventStr)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid --event", err)
	}

	pipelinePath := cfg.PipelineDir
	if len(args) == 1 {
		pipelinePath = args[0]
	}

	runner := engine.New(".",
		engine.WithLogger(engineLogger()),
		engine.WithTools(cfg.LintTool, cfg.FormatTool),
	)
	defer func() { _ = runner.Close() }()

	var store *history.Store
	if !flags.noHistory {
		dbPath := flags.historyDB
		if dbPath == "" {
			dbPath = cfg.HistoryDB
		}
		store, err = history.Open(dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	// One pass immediately; pipelines are reloaded on every pass so
	// edits to the definitions themselves take effect.
	runOnce := func() {
		pipelines, err := selectPipelines(pipelinePath, event, flags.branch, flags.pipelineName)
		if err != nil {
			printError(err.Error(), nil)
			return
		}
		for _, p := range pipelines {
			run, err := runner.Run(ctx, p, event, flags.branch)
			if err != nil {
				printError(err.Error(), nil)
				return
			}
			printRunResults([]*model.RunResult{run})
			if store != nil {
				if err := store.Save(run); err != nil {
					printError(err.Error(), nil)
				}
			}
		}
	}
	runOnce()

	watchPaths := flags.paths
	if len(watchPaths) == 0 {
		watchPaths = []string{"."}
	}

	watcher, err := watch.New(watch.Options{
		Paths:    watchPaths,
		Debounce: flags.debounce,
		Logger:   watchLogger(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Watching %v for changes (Ctrl-C to stop)\n", watchPaths)

	err = watcher.Run(ctx, func(path string) {
		fmt.Fprintf(os.Stderr, "Change detected: %s\n", path)
		runOnce()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchLogger logs watcher internals only in verbose mode.
func watchLogger() hclog.Logger {
	if !verbose {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "watch",
		Level:  hclog.Debug,
		Output: os.Stderr,
	})
}
