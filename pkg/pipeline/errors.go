package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTask   = errors.New("unknown task")
	ErrDuplicateTask = errors.New("task already registered")
	ErrGroupCycle    = errors.New("task group cycle")
	ErrInvalidTask   = errors.New("invalid task")
	ErrSkipped       = errors.New("skipped")
)

// Skip is returned by a leaf action that decided not to act. The runner
// records the task as skipped and continues.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// TaskError reports which task failed on which host.
type TaskError struct {
	Task string
	Host string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed on %s: %v", e.Task, e.Host, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
