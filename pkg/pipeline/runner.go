package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/andrej220/wpdeploy/pkg/lg"
	dm "github.com/andrej220/wpdeploy/pkg/shared-models"
	"github.com/google/uuid"
)

// Reporter receives run and task transitions.
type Reporter interface {
	Report(ctx context.Context, ev dm.Event) error
}

// Runner executes a plan on one host, one task at a time.
type Runner struct {
	RunID    uuid.UUID
	Reporter Reporter
	Logger   lg.Logger
}

func NewRunner(runID uuid.UUID, reporter Reporter, logger lg.Logger) *Runner {
	if logger == nil {
		logger = lg.Discard
	}
	return &Runner{RunID: runID, Reporter: reporter, Logger: logger}
}

// Run executes plan.Tasks in order and stops at the first error. The plan's
// After hooks only run when every task completed. Cancellation of ctx is
// checked before each task.
func (r *Runner) Run(ctx context.Context, plan *Plan, rc *RunContext) (dm.HostReport, error) {
	host := rc.Host.Host.Alias
	logger := r.Logger.With(lg.String("host", host), lg.String("run", r.RunID.String()))
	rc.Logger = logger
	report := dm.HostReport{Host: host, Branch: rc.Host.Host.Branch, Release: rc.Host.ReleaseName}

	r.emit(ctx, dm.Event{Host: host, Kind: dm.RunStarted})

	steps := append(append([]*Task{}, plan.Tasks...), plan.After...)
	for _, t := range steps {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, &report, t.Name, 0, err)
		}

		r.emit(ctx, dm.Event{Host: host, Task: t.Name, Kind: dm.TaskStarted})
		logger.Info("task started", lg.String("task", t.Name))
		start := time.Now()

		err := t.Action(ctx, rc)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			report.Tasks = append(report.Tasks, dm.TaskResult{Name: t.Name, Status: dm.StatusSucceeded, DurationMS: elapsed.Milliseconds()})
			r.emit(ctx, dm.Event{Host: host, Task: t.Name, Kind: dm.TaskSucceeded})
		case errors.Is(err, ErrSkipped):
			report.Tasks = append(report.Tasks, dm.TaskResult{Name: t.Name, Status: dm.StatusSkipped, DurationMS: elapsed.Milliseconds(), Error: err.Error()})
			r.emit(ctx, dm.Event{Host: host, Task: t.Name, Kind: dm.TaskSkipped, Error: err.Error()})
			logger.Info("task skipped", lg.String("task", t.Name), lg.Err(err))
		default:
			return r.fail(ctx, &report, t.Name, elapsed, err)
		}
	}

	report.Success = true
	r.emit(ctx, dm.Event{Host: host, Kind: dm.RunSucceeded})
	logger.Info("run succeeded", lg.Int("tasks", len(steps)))
	return report, nil
}

func (r *Runner) fail(ctx context.Context, report *dm.HostReport, task string, elapsed time.Duration, err error) (dm.HostReport, error) {
	taskErr := &TaskError{Task: task, Host: report.Host, Err: err}
	report.Tasks = append(report.Tasks, dm.TaskResult{Name: task, Status: dm.StatusFailed, DurationMS: elapsed.Milliseconds(), Error: err.Error()})
	// ctx may be the reason we stopped, events still go out
	ectx := context.WithoutCancel(ctx)
	r.emit(ectx, dm.Event{Host: report.Host, Task: task, Kind: dm.TaskFailed, Error: err.Error()})
	r.emit(ectx, dm.Event{Host: report.Host, Kind: dm.RunFailed, Task: task, Error: err.Error()})
	r.Logger.Error("task failed", lg.String("host", report.Host), lg.String("task", task), lg.Err(err))
	return *report, taskErr
}

func (r *Runner) emit(ctx context.Context, ev dm.Event) {
	if r.Reporter == nil {
		return
	}
	ev.RunID = r.RunID
	ev.Time = time.Now().UTC()
	if err := r.Reporter.Report(ctx, ev); err != nil {
		r.Logger.Warn("event not reported", lg.String("kind", string(ev.Kind)), lg.Err(err))
	}
}
