// Package cli — run.go implements the "cicada run" command.
//
// The run command loads pipelines from a file or directory, selects the
// ones whose trigger declarations match the invoked event and branch,
// executes them job by job, and records each run in the local history
// database. The process exit code reflects the worst run outcome so the
// command composes with outer scripts.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cicada/internal/engine"
	"github.com/shinji-kodama/cicada/internal/history"
	"github.com/shinji-kodama/cicada/internal/model"
	"github.com/shinji-kodama/cicada/internal/pipeline"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	// event is the trigger event the run simulates.
	event string

	// branch is the branch the event refers to, used by branch filters.
	branch string

	// pipelineName restricts execution to pipelines with this name.
	pipelineName string

	// historyDB overrides the history database path.
	historyDB string

	// noHistory disables run recording entirely.
	noHistory bool
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [file|dir]",
		Short: "Run pipelines matching the given trigger",
		Long: `Run every pipeline under the given file or directory whose trigger
declarations match the event and branch.

Pipelines with no 'on' block only run for workflow_dispatch, which is
also the default event.

Examples:
  cicada run
  cicada run ci/verify.yml
  cicada run --event push --branch main
  cicada run --pipeline verify --json`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.event, "event", "",
		"Trigger event: push, pull_request, workflow_dispatch")
	cmd.Flags().StringVar(&flags.branch, "branch", "", "Branch the event refers to")
	cmd.Flags().StringVar(&flags.pipelineName, "pipeline", "", "Only run the pipeline with this name")
	cmd.Flags().StringVar(&flags.historyDB, "history-db", "", "History database file")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record this run")

	return cmd
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, flags *runFlags, args []string) error {
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

	path := cfg.PipelineDir
	if len(args) == 1 {
		path = args[0]
	}

	pipelines, err := selectPipelines(path, event, flags.branch, flags.pipelineName)
	if err != nil {
		return err
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

	anyFailed := false
	results := make([]*model.RunResult, 0, len(pipelines))
	for _, p := range pipelines {
		VerboseLog("Running pipeline %q from %s", p.Name, p.Path)

		run, err := runner.Run(ctx, p, event, flags.branch)
		if err != nil {
			return err
		}
		results = append(results, run)

		if store != nil {
			if err := store.Save(run); err != nil {
				return err
			}
		}
		if run.Status == model.StatusFailure {
			anyFailed = true
		}
	}

	printRunResults(results)

	if anyFailed {
		return model.NewCLIError(model.ExitStepFailed, "one or more jobs failed")
	}
	return nil
}

// selectPipelines loads and validates everything under path, then keeps
// the pipelines eligible for the event, branch, and optional name
// filter. Validation failures abort before anything runs.
func selectPipelines(path string, event model.Event, branch, name string) ([]*pipeline.Pipeline, error) {
	pipelines, err := pipeline.LoadAll(path)
	if err != nil {
		return nil, err
	}

	for _, p := range pipelines {
		if problems := pipeline.Validate(p); len(problems) > 0 {
			return nil, model.WrapCLIError(model.ExitInvalidPipeline,
				fmt.Sprintf("pipeline %s is invalid", p.Path), validationError(problems))
		}
	}

	var eligible []*pipeline.Pipeline
	for _, p := range pipelines {
		if name != "" && p.Name != name {
			continue
		}
		if !p.On.Matches(event, branch) {
			VerboseLog("Pipeline %q does not match event %s, skipping", p.Name, event)
			continue
		}
		eligible = append(eligible, p)
	}

	if len(eligible) == 0 {
		return nil, model.NewCLIError(model.ExitPipelineNotFound,
			fmt.Sprintf("no pipeline under %s matches event %s", path, event))
	}
	return eligible, nil
}

// validationError flattens collected validation problems into a single
// error for CLIError wrapping.
func validationError(problems []pipeline.ValidationError) error {
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, p.Error())
	}
	return fmt.Errorf("%d problem(s):\n  %s", len(problems), strings.Join(msgs, "\n  "))
}

// engineLogger returns the structured logger for the execution engine.
// Without --verbose the engine stays silent and the CLI's own output is
// all the user sees.
func engineLogger() hclog.Logger {
	if !verbose {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "cicada",
		Level:  hclog.Debug,
		Output: os.Stderr,
	})
}

// printRunResults outputs run results in text or JSON format.
func printRunResults(results []*model.RunResult) {
	if IsJSONOutput() {
		type resultJSON struct {
			Runs []*model.RunResult `json:"runs"`
		}
		data, _ := json.MarshalIndent(resultJSON{Runs: results}, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, run := range results {
		printRunText(run)
	}
}

// printRunText renders one run as an indented text summary:
//
//	verify (push): failure [3f1c...]
//	  job lint-strict: failure
//	    ✗ strict checks (lint, 1.2s): 2 finding(s)
//	    - formatting (format-check): skipped
func printRunText(run *model.RunResult) {
	fmt.Printf("%s (%s): %s [%s]\n", run.Pipeline, run.Event, run.Status, run.ID)

	for _, job := range run.Jobs {
		fmt.Printf("  job %s: %s\n", job.ID, job.Status)
		for _, step := range job.Steps {
			switch step.Status {
			case model.StatusSuccess:
				fmt.Printf("    ✓ %s (%s, %s)\n",
					step.Name, step.Kind, step.Duration.Round(time.Millisecond))
			case model.StatusFailure:
				fmt.Printf("    ✗ %s (%s): %s\n", step.Name, step.Kind, step.Error)
				for _, finding := range step.Findings {
					fmt.Printf("      %s\n", finding.String())
				}
			case model.StatusSkipped:
				fmt.Printf("    - %s (%s): skipped\n", step.Name, step.Kind)
			}
		}
	}
}
