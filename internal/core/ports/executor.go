// Package ports defines the core interfaces for the application.
package ports

import "go.trai.ch/forge/internal/async"

// Task is a unit of work submitted to a task executor. Execute runs to
// completion and returns the task's result or error; it must not retain
// references to scheduler state, because it may run on another goroutine.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Task interface {
	Execute() (any, error)
}

// TaskExecutor runs tasks and reports their completion through deferreds.
//
// Implementations decide where tasks run. The contract with callers is
// single-threaded: RunTaskAsync, Wait, HasAnyRunning, and Close are always
// invoked from one control goroutine, and every deferred returned by
// RunTaskAsync is resolved on that goroutine, inside RunTaskAsync itself or
// inside Wait.
type TaskExecutor interface {
	// RunTaskAsync submits a task. The returned deferred resolves with the
	// task's result or failure. Submitting to a closed executor errors.
	RunTaskAsync(task Task) (*async.Deferred, error)

	// Wait blocks until every listed deferred is resolved, delivering
	// completions for in-flight tasks as it goes. Deferreds not produced by
	// this executor may be resolved concurrently by other means; Wait polls
	// for those. With no arguments Wait returns once all submitted tasks
	// have completed.
	Wait(deferreds ...*async.Deferred)

	// HasAnyRunning reports whether any submitted task has not yet
	// delivered its completion.
	HasAnyRunning() bool

	// Close shuts the executor down. When graceful, running and queued
	// tasks finish first; otherwise pending work is abandoned. Closing
	// twice errors.
	Close(graceful bool) error
}
