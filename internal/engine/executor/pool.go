package executor

import (
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/forge/internal/async"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// completion is a finished task waiting to be delivered to its deferred on
// the control goroutine.
type completion struct {
	deferred *async.Deferred
	value    any
	err      error
}

// WorkerPool runs tasks on goroutines, at most size concurrently. Each
// submitted task holds a goroutine that blocks on the concurrency semaphore
// until a slot frees up.
//
// Workers never touch deferreds. They enqueue completions, and Wait delivers
// those completions, resolving the deferreds, on the goroutine that calls
// it. This keeps every deferred confined to the control goroutine even
// though execution is parallel.
type WorkerPool struct {
	logger ports.Logger
	sem    chan struct{}
	wg     sync.WaitGroup

	mu    sync.Mutex
	ready []completion
	wake  chan struct{}

	// aborted makes queued workers return without running their task.
	aborted atomic.Bool

	// inFlight counts tasks submitted but not yet delivered. Control
	// goroutine only.
	inFlight int
	closed   bool
}

// NewWorkerPool creates a pool running at most size tasks concurrently.
// A size below one is treated as one.
func NewWorkerPool(size int, logger ports.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		logger: logger,
		sem:    make(chan struct{}, size),
		wake:   make(chan struct{}, 1),
	}
}

// RunTaskAsync submits the task to the pool. The returned deferred resolves
// during a later Wait call on the control goroutine.
func (p *WorkerPool) RunTaskAsync(task ports.Task) (*async.Deferred, error) {
	if p.closed {
		return nil, zerr.With(ErrExecutorClosed, "op", "run_task")
	}

	d := async.New()
	p.inFlight++
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		if p.aborted.Load() {
			return
		}
		value, err := task.Execute()
		p.enqueue(completion{deferred: d, value: value, err: err})
	}()
	return d, nil
}

func (p *WorkerPool) enqueue(c completion) {
	p.mu.Lock()
	p.ready = append(p.ready, c)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// deliver drains the ready queue and resolves the queued deferreds. It must
// run on the control goroutine.
func (p *WorkerPool) deliver() {
	for {
		p.mu.Lock()
		batch := p.ready
		p.ready = nil
		p.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, c := range batch {
			p.inFlight--
			if c.err != nil {
				c.deferred.Fail(c.err)
			} else {
				c.deferred.Succeed(c.value)
			}
		}
	}
}

func (p *WorkerPool) satisfied(targets []*async.Deferred) bool {
	if len(targets) == 0 {
		return p.inFlight == 0
	}
	for _, d := range targets {
		if !d.Resolved() {
			return false
		}
	}
	return true
}

// Wait blocks until every target deferred is resolved, delivering pool
// completions as they arrive. Without arguments it waits for all submitted
// tasks. Targets the pool does not track are expected to resolve as a side
// effect of delivered completions (a gather over pool deferreds, for
// example); Wait re-checks them on a short poll interval.
func (p *WorkerPool) Wait(targets ...*async.Deferred) {
	for {
		p.deliver()
		if p.satisfied(targets) {
			return
		}
		select {
		case <-p.wake:
		case <-time.After(pollInterval):
		}
	}
}

// HasAnyRunning reports whether any submitted task has not yet been
// delivered.
func (p *WorkerPool) HasAnyRunning() bool {
	return p.inFlight > 0
}

// Close shuts the pool down. Graceful close delivers all outstanding
// completions first; forced close lets running tasks finish on their own but
// abandons queued ones, leaving their deferreds unresolved. Closing twice
// errors.
func (p *WorkerPool) Close(graceful bool) error {
	if p.closed {
		return zerr.With(ErrExecutorClosed, "op", "close")
	}
	p.closed = true

	if graceful {
		p.Wait()
		p.wg.Wait()
		return nil
	}

	p.aborted.Store(true)
	if p.logger != nil && p.inFlight > 0 {
		p.logger.Warn("task executor closed with tasks outstanding")
	}
	return nil
}
