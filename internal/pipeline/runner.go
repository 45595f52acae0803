package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

// Status is the outcome of one task.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	// StatusCancelled marks tasks that never ran because the run context
	// was cancelled or timed out.
	StatusCancelled Status = "cancelled"
)

// Result records one task run.
type Result struct {
	Task     string
	Status   Status
	Duration time.Duration
	Err      error
}

// Report collects the results of a run in execution order.
type Report struct {
	Results  []Result
	Duration time.Duration
}

// Failed returns the results of failed tasks.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Count returns how many tasks ended with status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Runner executes tasks one at a time in the order given. It derives no
// dependencies between tasks and never retries.
type Runner struct {
	// FailFast skips the remaining tasks after the first failure. When
	// false every task runs and all failures are returned together.
	FailFast bool
	// OnResult, when set, is called as each task finishes, is skipped or is
	// cancelled.
	OnResult func(Result)
	logger   *observability.Logger
}

// NewRunner creates a runner.
func NewRunner(failFast bool, logger *observability.Logger) *Runner {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Runner{FailFast: failFast, logger: logger.WithField("component", "runner")}
}

// Run executes tasks sequentially. The report is always returned; the error
// joins every task failure, plus the context error if the run was cut short.
func (r *Runner) Run(ctx context.Context, tasks ...Task) (*Report, error) {
	report := &Report{Results: make([]Result, 0, len(tasks))}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	var errs []error
	stopped, cancelled := false, false

	for i, task := range tasks {
		if !cancelled {
			if err := ctx.Err(); err != nil {
				errs = append(errs, apperrors.Wrap(err, apperrors.ErrCodeCancelled, "Run cancelled").
					WithContext("remaining", len(tasks)-i))
				cancelled = true
			}
		}
		if cancelled {
			r.record(report, Result{Task: task.Name(), Status: StatusCancelled})
			continue
		}
		if stopped {
			r.record(report, Result{Task: task.Name(), Status: StatusSkipped})
			continue
		}

		r.logger.InfoWithFields("task started", map[string]interface{}{
			"task":  task.Name(),
			"index": i + 1,
			"total": len(tasks),
		})
		taskStart := time.Now()
		err := task.Run(ctx)
		res := Result{Task: task.Name(), Status: StatusSucceeded, Duration: time.Since(taskStart)}

		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			errs = append(errs, fmt.Errorf("%s: %w", task.Name(), err))
			r.logger.ErrorWithFields("task failed", map[string]interface{}{
				"task":        task.Name(),
				"duration_ms": res.Duration.Milliseconds(),
				"error":       err,
			})
			if r.FailFast {
				stopped = true
			}
		} else {
			r.logger.InfoWithFields("task finished", map[string]interface{}{
				"task":        task.Name(),
				"duration_ms": res.Duration.Milliseconds(),
			})
		}
		r.record(report, res)
	}

	return report, errors.Join(errs...)
}

func (r *Runner) record(report *Report, res Result) {
	report.Results = append(report.Results, res)
	if r.OnResult != nil {
		r.OnResult(res)
	}
}
