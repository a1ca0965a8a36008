package executor

import (
	"go.trai.ch/forge/internal/async"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// InProcess runs each task synchronously on the submitting goroutine. Every
// deferred it returns is already resolved, which makes it the executor of
// choice for single-threaded builds and for tests.
type InProcess struct {
	closed bool
}

// NewInProcess creates an in-process executor.
func NewInProcess() *InProcess {
	return &InProcess{}
}

// RunTaskAsync executes the task inline and returns its resolved deferred.
func (e *InProcess) RunTaskAsync(task ports.Task) (*async.Deferred, error) {
	if e.closed {
		return nil, zerr.With(ErrExecutorClosed, "op", "run_task")
	}
	d := async.New()
	value, err := task.Execute()
	if err != nil {
		d.Fail(err)
	} else {
		d.Succeed(value)
	}
	return d, nil
}

// Wait returns immediately: tasks complete inside RunTaskAsync, so there is
// never anything outstanding to wait for.
func (e *InProcess) Wait(_ ...*async.Deferred) {}

// HasAnyRunning always reports false.
func (e *InProcess) HasAnyRunning() bool {
	return false
}

// Close marks the executor closed. Closing twice errors.
func (e *InProcess) Close(_ bool) error {
	if e.closed {
		return zerr.With(ErrExecutorClosed, "op", "close")
	}
	e.closed = true
	return nil
}
