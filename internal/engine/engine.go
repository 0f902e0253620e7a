package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/shinji-kodama/cicada/internal/model"
	"github.com/shinji-kodama/cicada/internal/pipeline"
)

// Runner executes pipelines. A single Runner may execute any number of
// pipelines sequentially; it holds no per-run state.
type Runner struct {
	// logger receives structured progress events. Never nil after New.
	logger hclog.Logger

	// workDir is the directory relative step paths resolve against.
	workDir string

	// lintTool and formatTool override the default analyzer and
	// formatter binaries when non-empty. Pipeline steps may override
	// them again per step.
	lintTool   string
	formatTool string

	// dockerClient is created lazily on the first step that needs SDK
	// access and reused for the rest of the runner's lifetime.
	dockerClient dockerAPI
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(logger hclog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTools overrides the default analyzer and formatter binaries.
func WithTools(lintTool, formatTool string) Option {
	return func(r *Runner) {
		r.lintTool = lintTool
		r.formatTool = formatTool
	}
}

// withDockerAPI injects a Docker API stand-in. Test-only.
func withDockerAPI(api dockerAPI) Option {
	return func(r *Runner) { r.dockerClient = api }
}

// New creates a Runner rooted at workDir.
func New(workDir string, opts ...Option) *Runner {
	r := &Runner{
		logger:  hclog.NewNullLogger(),
		workDir: workDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one pipeline for the given trigger event and branch.
// The pipeline must have passed pipeline.Validate; Run re-checks only
// what it cannot proceed without (a computable job order).
//
// The returned RunResult is complete even when its status is failure.
// The error return is reserved for problems that prevented orderly
// execution entirely.
func (r *Runner) Run(ctx context.Context, p *pipeline.Pipeline, event model.Event, branch string) (*model.RunResult, error) {
	order, err := pipeline.ExecutionOrder(p.Jobs)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidPipeline,
			"cannot determine job order", err)
	}

	run := &model.RunResult{
		ID:           uuid.NewString(),
		Pipeline:     p.Name,
		PipelinePath: p.Path,
		Event:        event,
		Branch:       branch,
		Status:       model.StatusSuccess,
		StartedAt:    time.Now().UTC(),
	}

	r.logger.Info("run started",
		"run", run.ID, "pipeline", p.Name, "event", event.String(), "jobs", len(order))

	// jobStatus tracks outcomes for dependency gating.
	jobStatus := make(map[string]model.RunStatus, len(order))

	for _, id := range order {
		job := p.Jobs[id]

		if blocked, dep := r.blockedBy(job, jobStatus); blocked {
			r.logger.Warn("job skipped", "run", run.ID, "job", id, "blocked-by", dep)
			jobStatus[id] = model.StatusSkipped
			run.Jobs = append(run.Jobs, model.JobResult{
				ID:     id,
				Name:   jobName(id, job),
				Status: model.StatusSkipped,
			})
			continue
		}

		result := r.runJob(ctx, run.ID, id, job)
		jobStatus[id] = result.Status
		run.Jobs = append(run.Jobs, result)

		if result.Status == model.StatusFailure {
			run.Status = model.StatusFailure
		}
	}

	run.FinishedAt = time.Now().UTC()
	r.logger.Info("run finished",
		"run", run.ID, "status", run.Status.String(),
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return run, nil
}

// blockedBy reports whether a dependency prevents the job from running,
// and which one.
func (r *Runner) blockedBy(job *pipeline.Job, jobStatus map[string]model.RunStatus) (bool, string) {
	for _, dep := range job.Needs {
		if jobStatus[dep] != model.StatusSuccess {
			return true, dep
		}
	}
	return false, ""
}

// runJob executes a job's steps sequentially, stopping on the first
// failure. Steps after the failure are recorded as skipped.
func (r *Runner) runJob(ctx context.Context, runID, id string, job *pipeline.Job) model.JobResult {
	result := model.JobResult{
		ID:     id,
		Name:   jobName(id, job),
		Status: model.StatusSuccess,
	}
	start := time.Now()

	r.logger.Info("job started", "run", runID, "job", id, "steps", len(job.Steps))

	failed := false
	for _, step := range job.Steps {
		if failed {
			result.Steps = append(result.Steps, model.StepResult{
				Name:   step.DisplayName(),
				Kind:   step.Kind(),
				Status: model.StatusSkipped,
			})
			continue
		}

		stepResult := r.runStep(ctx, runID, id, step)
		result.Steps = append(result.Steps, stepResult)

		if stepResult.Status == model.StatusFailure {
			if step.ContinueOnError {
				// Recorded as a failure in the step, tolerated by the job.
				r.logger.Warn("step failed but continues",
					"run", runID, "job", id, "step", step.DisplayName())
				continue
			}
			failed = true
		}
	}

	if failed {
		result.Status = model.StatusFailure
	}
	result.Duration = time.Since(start)
	r.logger.Info("job finished",
		"run", runID, "job", id, "status", result.Status.String())
	return result
}

// runStep dispatches to the step implementation and wraps timing and
// logging around it.
func (r *Runner) runStep(ctx context.Context, runID, jobID string, step *pipeline.Step) model.StepResult {
	result := model.StepResult{
		Name:   step.DisplayName(),
		Kind:   step.Kind(),
		Status: model.StatusSuccess,
	}
	start := time.Now()

	r.logger.Debug("step started",
		"run", runID, "job", jobID, "step", result.Name, "kind", result.Kind.String())

	if err := r.executeStep(ctx, step, &result); err != nil {
		result.Status = model.StatusFailure
		result.Error = err.Error()
	}

	result.Duration = time.Since(start)
	r.logger.Debug("step finished",
		"run", runID, "job", jobID, "step", result.Name,
		"status", result.Status.String(),
		"duration", result.Duration.Round(time.Millisecond))
	return result
}

// jobName returns the job's display name, falling back to its id.
func jobName(id string, job *pipeline.Job) string {
	if job != nil && job.Name != "" {
		return job.Name
	}
	return id
}
