// Package executor provides task executor implementations: an in-process
// executor that runs tasks inline and a worker pool that runs them on a
// bounded set of goroutines.
//
// Both implementations uphold the ports.TaskExecutor contract: deferreds are
// only ever resolved on the goroutine that calls RunTaskAsync and Wait, so
// listeners never observe concurrent resolution.
package executor

import (
	"time"

	"go.trai.ch/zerr"
)

// ErrExecutorClosed is returned when submitting to or closing an executor
// that has already been closed.
var ErrExecutorClosed = zerr.New("task executor is closed")

// pollInterval bounds how long Wait sleeps between checks for deferreds
// that are resolved outside the executor's own completion flow.
const pollInterval = 10 * time.Millisecond
