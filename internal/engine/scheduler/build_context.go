package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/forge/internal/async"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// ErrRunInProgress is returned when a build is started on a context whose
// previous run has not finished.
var ErrRunInProgress = zerr.New("a build is already running on this context")

// ErrNoRunner is returned when a rule's kind has no registered begin
// function.
var ErrNoRunner = zerr.New("no runner registered for rule kind")

// ErrRuleAlreadyExecuted is returned when a run would execute a rule that
// already has a context from an earlier run. Rule contexts are one-shot;
// use a fresh build context to rebuild.
var ErrRuleAlreadyExecuted = zerr.New("rule already executed in this build context")

// Options configures a build run.
type Options struct {
	// Force runs every rule even when the cache reports no changes.
	Force bool

	// StopOnError drops all still-queued rules after the first failure.
	// Rules already in flight run to completion either way.
	StopOnError bool

	// RaiseOnError makes ExecuteSync return the failure as an error instead
	// of reporting it through the success flag only.
	RaiseOnError bool
}

// RuleResult is the recorded outcome of one rule in a finished run.
type RuleResult struct {
	Rule       *domain.Rule
	Status     domain.Status
	Outputs    []string
	Err        error
	Cached     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// BuildContext drives the execution of rule sequences. It owns the rule
// graph, creates a RuleContext per rule per run, and pumps the run forward
// one rule at a time as completions arrive.
//
// The pump protocol keeps scheduling single-threaded: the queue holds rules
// in dependency order, and on every rule completion the engine pumps exactly
// once, starting the head of the queue unless it still depends on an
// in-flight rule. Parallelism comes from the task executor underneath, never
// from concurrent scheduling.
type BuildContext struct {
	env       *Environment
	project   *domain.Project
	graph     *domain.RuleGraph
	executor  ports.TaskExecutor
	cache     ports.RuleCache
	logger    ports.Logger
	telemetry ports.Telemetry
	runners   map[domain.RuleKind]BeginFunc
	opts      Options

	contexts map[string]*RuleContext
	run      *runState
}

// runState is the mutable state of one ExecuteAsync run.
type runState struct {
	queue    []*RuleContext
	inFlight []*RuleContext

	anyFailed bool
	failed    []string
	deferred  *async.Deferred
}

// NewBuildContext creates a build context for the project. The runners map
// binds each rule kind to the function that starts it; cache, logger, and
// telemetry may be nil to disable the respective concern.
func NewBuildContext(
	env *Environment,
	project *domain.Project,
	executor ports.TaskExecutor,
	cache ports.RuleCache,
	logger ports.Logger,
	telemetry ports.Telemetry,
	runners map[domain.RuleKind]BeginFunc,
	opts Options,
) *BuildContext {
	return &BuildContext{
		env:       env,
		project:   project,
		graph:     domain.NewRuleGraph(project),
		executor:  executor,
		cache:     cache,
		logger:    logger,
		telemetry: telemetry,
		runners:   runners,
		opts:      opts,
		contexts:  make(map[string]*RuleContext),
	}
}

// Graph returns the rule graph the context schedules over.
func (bc *BuildContext) Graph() *domain.RuleGraph { return bc.graph }

// Project returns the project the context builds.
func (bc *BuildContext) Project() *domain.Project { return bc.project }

// RuleContextFor returns the rule context created for a rule path in the
// current run, or ErrRuleNotExecuted if the rule was not part of it.
func (bc *BuildContext) RuleContextFor(rulePath string) (*RuleContext, error) {
	return bc.contextFor(rulePath, nil)
}

func (bc *BuildContext) contextFor(rulePath string, requesting *domain.Module) (*RuleContext, error) {
	rule, err := bc.project.ResolveRule(rulePath, requesting)
	if err != nil {
		return nil, err
	}
	rc, ok := bc.contexts[rule.Path()]
	if !ok {
		return nil, zerr.With(domain.ErrRuleNotExecuted, "rule", rule.Path())
	}
	return rc, nil
}

// ExecuteAsync starts a build of the target rules and returns the deferred
// that resolves when the whole run is finished. The caller drives completion
// delivery by waiting on the executor; with an in-process executor the
// deferred is resolved before ExecuteAsync returns.
func (bc *BuildContext) ExecuteAsync(ctx context.Context, targetPaths []string) (*async.Deferred, error) {
	if len(targetPaths) == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}
	if bc.run != nil && !bc.run.deferred.Resolved() {
		return nil, ErrRunInProgress
	}

	sequence, err := bc.graph.Sequence(targetPaths)
	if err != nil {
		return nil, err
	}
	for _, rule := range sequence {
		if _, exists := bc.contexts[rule.Path()]; exists {
			return nil, zerr.With(ErrRuleAlreadyExecuted, "rule", rule.Path())
		}
	}

	bc.run = &runState{deferred: async.New()}
	for _, rule := range sequence {
		rc := newRuleContext(rule, bc)
		bc.contexts[rule.Path()] = rc
		bc.run.queue = append(bc.run.queue, rc)
		bc.registerCompletion(ctx, rc)
	}

	if bc.logger != nil {
		bc.logger.Info(fmt.Sprintf("building %d rules for %d targets", len(sequence), len(targetPaths)))
	}

	if len(sequence) == 0 {
		bc.run.deferred.Succeed(bc.Results())
		return bc.run.deferred, nil
	}

	// Seed the loop with one pump per rule; after this, each completion
	// pumps once.
	for range sequence {
		bc.pump(ctx)
	}
	return bc.run.deferred, nil
}

// ExecuteSync runs ExecuteAsync and blocks on the executor until the run
// deferred resolves. It reports success through the returned flag; with
// Options.RaiseOnError the failure is also returned as an error.
func (bc *BuildContext) ExecuteSync(ctx context.Context, targetPaths []string) (bool, error) {
	d, err := bc.ExecuteAsync(ctx, targetPaths)
	if err != nil {
		return false, err
	}
	bc.executor.Wait(d)
	if d.Failed() {
		if bc.opts.RaiseOnError {
			return false, d.Err()
		}
		return false, nil
	}
	return true, nil
}

// Results returns the outcome of every rule context created by the runs so
// far, keyed by rule path.
func (bc *BuildContext) Results() map[string]*RuleResult {
	results := make(map[string]*RuleResult, len(bc.contexts))
	for path, rc := range bc.contexts {
		results[path] = &RuleResult{
			Rule:       rc.rule,
			Status:     rc.status,
			Outputs:    rc.outputs,
			Err:        rc.deferred.Err(),
			Cached:     rc.cached,
			StartedAt:  rc.startedAt,
			FinishedAt: rc.finishedAt,
		}
	}
	return results
}

// Close shuts down the underlying executor.
func (bc *BuildContext) Close(graceful bool) error {
	return bc.executor.Close(graceful)
}

func (bc *BuildContext) registerCompletion(ctx context.Context, rc *RuleContext) {
	rc.deferred.OnSuccess(func(any) {
		bc.onRuleResolved(ctx, rc, nil)
	})
	rc.deferred.OnFailure(func(err error) {
		bc.onRuleResolved(ctx, rc, err)
	})
}

func (bc *BuildContext) onRuleResolved(ctx context.Context, rc *RuleContext, err error) {
	rc.finishedAt = time.Now()
	if err != nil {
		rc.status = domain.StatusFailed
		bc.run.anyFailed = true
		bc.run.failed = append(bc.run.failed, rc.rule.Path())
		if rc.vertex != nil {
			rc.vertex.Complete(err)
		}
		if bc.logger != nil {
			bc.logger.Error(zerr.With(zerr.Wrap(err, "rule failed"), "rule", rc.rule.Path()))
		}
		if bc.opts.StopOnError && len(bc.run.queue) > 0 {
			if bc.logger != nil {
				bc.logger.Warn(fmt.Sprintf("stopping: dropping %d queued rules", len(bc.run.queue)))
			}
			bc.run.queue = nil
		}
	} else {
		rc.status = domain.StatusSucceeded
		if rc.vertex != nil {
			rc.vertex.Complete(nil)
		}
		bc.commitCache(rc)
	}

	bc.removeInFlight(rc)
	bc.pump(ctx)
	bc.maybeFinish()
}

func (bc *BuildContext) commitCache(rc *RuleContext) {
	if bc.cache == nil || rc.cached {
		return
	}
	srcs, err := rc.SrcPaths()
	if err == nil {
		err = bc.cache.Commit(rc.rule.Path(), srcs, rc.outputs)
	}
	if err != nil && bc.logger != nil {
		// A stale cache entry is not a build failure.
		bc.logger.Warn(fmt.Sprintf("cache commit failed for %s: %v", rc.rule.Path(), err))
	}
}

func (bc *BuildContext) removeInFlight(rc *RuleContext) {
	for i, active := range bc.run.inFlight {
		if active == rc {
			bc.run.inFlight = append(bc.run.inFlight[:i], bc.run.inFlight[i+1:]...)
			return
		}
	}
}

// pump starts the rule at the head of the queue unless it still depends on
// an in-flight rule. The queue is in dependency order, so a blocked head
// never hides a startable rule behind it.
func (bc *BuildContext) pump(ctx context.Context) {
	run := bc.run
	if len(run.queue) == 0 {
		return
	}
	head := run.queue[0]
	for _, active := range run.inFlight {
		blocked, err := bc.graph.HasDependency(head.rule.Path(), active.rule.Path())
		if err != nil {
			// Both rules were sequenced into the graph, so resolution
			// cannot fail here; failing the head keeps the run deferred
			// resolvable rather than re-queueing forever.
			run.queue = run.queue[1:]
			head.Fail(zerr.Wrap(err, "dependency check failed"))
			return
		}
		if blocked {
			return
		}
	}
	run.queue = run.queue[1:]
	bc.startRule(ctx, head)
}

func (bc *BuildContext) startRule(ctx context.Context, rc *RuleContext) {
	run := bc.run
	run.inFlight = append(run.inFlight, rc)
	rc.status = domain.StatusRunning
	rc.startedAt = time.Now()

	// A failed direct dependency fails this rule without ever starting its
	// work; the failure then cascades the same way to rules depending on
	// this one.
	if err := bc.checkPredecessorFailures(rc); err != nil {
		rc.Fail(err)
		return
	}

	vctx := ctx
	if bc.telemetry != nil {
		vctx, rc.vertex = bc.telemetry.Record(ctx, rc.rule.Path())
	}

	if done, err := bc.trySatisfyFromCache(rc); err != nil {
		rc.Fail(err)
		return
	} else if done {
		return
	}

	begin, ok := bc.runners[rc.rule.Kind()]
	if !ok {
		rc.Fail(zerr.With(zerr.With(ErrNoRunner, "rule", rc.rule.Path()), "kind", string(rc.rule.Kind())))
		return
	}
	if err := begin(vctx, rc); err != nil {
		rc.Fail(zerr.With(zerr.Wrap(err, "rule failed to start"), "rule", rc.rule.Path()))
	}
}

// trySatisfyFromCache resolves the rule from the cache when its sources are
// unchanged since the last committed run and the previous outputs are known.
func (bc *BuildContext) trySatisfyFromCache(rc *RuleContext) (bool, error) {
	if bc.cache == nil || bc.opts.Force {
		return false, nil
	}
	srcs, err := rc.SrcPaths()
	if err != nil {
		return false, err
	}
	delta, err := bc.cache.ComputeDelta(rc.rule.Path(), srcs)
	if err != nil {
		return false, err
	}
	if delta.AnyChanges() {
		return false, nil
	}
	outputs := bc.cache.KnownOutputs(rc.rule.Path())
	if outputs == nil {
		return false, nil
	}

	rc.outputs = outputs
	rc.cached = true
	if rc.vertex != nil {
		rc.vertex.Cached()
	}
	rc.Succeed(outputs)
	return true, nil
}

func (bc *BuildContext) checkPredecessorFailures(rc *RuleContext) error {
	for _, dep := range rc.rule.DependentPaths() {
		if !domain.IsRulePath(dep) {
			continue
		}
		depCtx, err := bc.contextFor(dep, rc.rule.ParentModule())
		if err != nil {
			return err
		}
		if depCtx.status == domain.StatusFailed {
			return zerr.With(zerr.With(domain.ErrDependencyFailed,
				"rule", rc.rule.Path()), "failed_dependency", depCtx.rule.Path())
		}
	}
	return nil
}

func (bc *BuildContext) maybeFinish() {
	run := bc.run
	if len(run.queue) > 0 || len(run.inFlight) > 0 || run.deferred.Resolved() {
		return
	}
	if run.anyFailed {
		run.deferred.Fail(zerr.With(domain.ErrBuildFailed, "failed_rules", run.failed))
		return
	}
	run.deferred.Succeed(bc.Results())
}
