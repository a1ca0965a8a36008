// Package async implements the single-assignment completion primitive used
// to signal rule and task completion throughout the engine.
package async

import "fmt"

// Deferred is a single-assignment result cell. It starts pending and
// transitions exactly once to either succeeded (with a value) or failed
// (with an error). Listeners registered before resolution fire synchronously
// at resolution time, in registration order; listeners registered after
// resolution fire immediately at registration time. Listeners for the state
// the deferred did not resolve to are never invoked.
//
// A Deferred does no locking. It must be confined to a single goroutine;
// executors that complete work on other goroutines marshal the resolution
// back onto the control goroutine before touching the deferred (see
// engine/executor.WorkerPool.Wait).
type Deferred struct {
	done      bool
	failed    bool
	value     any
	err       error
	callbacks []func(any)
	errbacks  []func(error)
}

// New creates a pending Deferred.
func New() *Deferred {
	return &Deferred{}
}

// Resolved reports whether the deferred has completed, successfully or not.
func (d *Deferred) Resolved() bool {
	return d.done
}

// Failed reports whether the deferred resolved to failure.
// It is only meaningful once Resolved returns true.
func (d *Deferred) Failed() bool {
	return d.failed
}

// Err returns the failure error, or nil if pending or succeeded.
func (d *Deferred) Err() error {
	return d.err
}

// Value returns the success value, or nil if pending or failed.
func (d *Deferred) Value() any {
	return d.value
}

// Succeed transitions the deferred to the succeeded state and invokes all
// registered success listeners in registration order. Resolving a deferred
// twice is a programming error and panics.
func (d *Deferred) Succeed(value any) {
	if d.done {
		panic(fmt.Sprintf("async: deferred resolved twice (value %v)", value))
	}
	d.done = true
	d.value = value
	callbacks := d.callbacks
	d.callbacks = nil
	d.errbacks = nil
	for _, fn := range callbacks {
		fn(value)
	}
}

// Fail transitions the deferred to the failed state and invokes all
// registered failure listeners in registration order. Resolving a deferred
// twice is a programming error and panics.
func (d *Deferred) Fail(err error) {
	if d.done {
		panic(fmt.Sprintf("async: deferred resolved twice (err %v)", err))
	}
	d.done = true
	d.failed = true
	d.err = err
	errbacks := d.errbacks
	d.callbacks = nil
	d.errbacks = nil
	for _, fn := range errbacks {
		fn(err)
	}
}

// OnSuccess registers fn to run when the deferred succeeds. If the deferred
// already succeeded fn runs immediately; if it already failed fn is dropped.
func (d *Deferred) OnSuccess(fn func(value any)) {
	if d.done {
		if !d.failed {
			fn(d.value)
		}
		return
	}
	d.callbacks = append(d.callbacks, fn)
}

// OnFailure registers fn to run when the deferred fails. If the deferred
// already failed fn runs immediately; if it already succeeded fn is dropped.
func (d *Deferred) OnFailure(fn func(err error)) {
	if d.done {
		if d.failed {
			fn(d.err)
		}
		return
	}
	d.errbacks = append(d.errbacks, fn)
}

// Result is one input's outcome in a Gather aggregate.
type Result struct {
	OK    bool
	Value any
	Err   error
}

// GatherError carries the per-input results when a fail-fast Gather resolves
// to failure.
type GatherError struct {
	Results []Result
}

func (e *GatherError) Error() string {
	failed := 0
	for _, r := range e.Results {
		if !r.OK {
			failed++
		}
	}
	return fmt.Sprintf("async: %d of %d gathered deferreds failed", failed, len(e.Results))
}

// First returns the first concrete error among the failed results, or nil.
func (e *GatherError) First() error {
	for _, r := range e.Results {
		if !r.OK && r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Gather returns a deferred that resolves once every input deferred has
// resolved, regardless of individual outcomes. The success value is a
// []Result matching the input order. With failIfAny set the aggregate
// instead resolves to failure (with a *GatherError carrying the same
// results) when at least one input failed. Zero inputs resolve immediately
// to success with an empty result list.
func Gather(deferreds []*Deferred, failIfAny bool) *Deferred {
	gathered := New()
	if len(deferreds) == 0 {
		gathered.Succeed([]Result{})
		return gathered
	}

	pending := len(deferreds)
	results := make([]Result, len(deferreds))

	complete := func() {
		pending--
		if pending > 0 {
			return
		}
		if failIfAny {
			for _, r := range results {
				if !r.OK {
					gathered.Fail(&GatherError{Results: results})
					return
				}
			}
		}
		gathered.Succeed(results)
	}

	for n, d := range deferreds {
		d.OnSuccess(func(value any) {
			results[n] = Result{OK: true, Value: value}
			complete()
		})
		d.OnFailure(func(err error) {
			results[n] = Result{OK: false, Err: err}
			complete()
		})
	}

	return gathered
}
