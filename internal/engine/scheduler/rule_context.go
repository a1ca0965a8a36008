package scheduler

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/forge/internal/async"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// BeginFunc starts the work of one rule. Implementations submit tasks
// through the rule context and arrange for the context's deferred to resolve
// when the rule's work is done, typically via Succeed, Fail, or Chain. A
// returned error fails the rule immediately.
type BeginFunc func(ctx context.Context, rc *RuleContext) error

// RuleContext is the per-run execution state of one rule: its deferred,
// status, resolved sources, and collected outputs. It is created by the
// build context when a run starts and confined to the control goroutine.
type RuleContext struct {
	rule  *domain.Rule
	build *BuildContext

	deferred   *async.Deferred
	status     domain.Status
	vertex     ports.Vertex
	startedAt  time.Time
	finishedAt time.Time

	srcPaths []string
	outputs  []string
	cached   bool
}

func newRuleContext(rule *domain.Rule, build *BuildContext) *RuleContext {
	return &RuleContext{
		rule:     rule,
		build:    build,
		deferred: async.New(),
		status:   domain.StatusWaiting,
	}
}

// Rule returns the rule this context executes.
func (rc *RuleContext) Rule() *domain.Rule { return rc.rule }

// Deferred returns the deferred that resolves when the rule finishes.
func (rc *RuleContext) Deferred() *async.Deferred { return rc.deferred }

// Status returns the rule's current execution status.
func (rc *RuleContext) Status() domain.Status { return rc.status }

// StartedAt returns when the rule started running, zero if it never did.
func (rc *RuleContext) StartedAt() time.Time { return rc.startedAt }

// FinishedAt returns when the rule finished, zero while pending or running.
func (rc *RuleContext) FinishedAt() time.Time { return rc.finishedAt }

// Vertex returns the telemetry vertex recording this rule's run, nil before
// the rule starts.
func (rc *RuleContext) Vertex() ports.Vertex { return rc.vertex }

// Outputs returns the output files the rule has produced so far.
func (rc *RuleContext) Outputs() []string { return rc.outputs }

// AppendOutputs records produced output files.
func (rc *RuleContext) AppendOutputs(paths ...string) {
	rc.outputs = append(rc.outputs, paths...)
}

// SrcPaths resolves the rule's sources to concrete file paths and memoizes
// the result. Plain paths are taken relative to the rule's module directory;
// directories are enumerated recursively, with the rule's source filter
// applied to the enumerated file names. Rule references expand to the
// referenced rule's outputs, which is safe because the engine never starts a
// rule before its dependencies have finished.
func (rc *RuleContext) SrcPaths() ([]string, error) {
	if rc.srcPaths != nil {
		return rc.srcPaths, nil
	}

	module := rc.rule.ParentModule()
	moduleDir := rc.build.env.ModuleDir(module.Path())

	var paths []string
	for _, src := range rc.rule.Srcs() {
		if domain.IsRulePath(src) {
			depCtx, err := rc.build.contextFor(src, module)
			if err != nil {
				return nil, err
			}
			paths = append(paths, depCtx.Outputs()...)
			continue
		}

		full := filepath.Join(moduleDir, src)
		info, err := os.Stat(full)
		if err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(err, "source not found"),
				"rule", rc.rule.Path()), "src", src)
		}
		if !info.IsDir() {
			paths = append(paths, full)
			continue
		}

		files, err := rc.enumerateDir(full)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}

	rc.srcPaths = paths
	return paths, nil
}

func (rc *RuleContext) enumerateDir(dir string) ([]string, error) {
	filter := rc.rule.SrcFilter()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, filepath.Base(path))
			if err != nil {
				return zerr.With(zerr.With(zerr.Wrap(err, "bad source filter"),
					"rule", rc.rule.Path()), "src_filter", filter)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(err, "enumerating sources"),
			"rule", rc.rule.Path()), "dir", dir)
	}
	return files, nil
}

// ModuleDir returns the source directory of the rule's module.
func (rc *RuleContext) ModuleDir() string {
	return rc.build.env.ModuleDir(rc.rule.ParentModule().Path())
}

// OutPath returns the rule's output directory under the build-out tree.
func (rc *RuleContext) OutPath() string {
	return rc.build.env.OutDir(rc.rule.ParentModule().Path())
}

// GenPath returns the rule's output directory under the build-gen tree,
// used for intermediate files consumed by other rules.
func (rc *RuleContext) GenPath() string {
	return rc.build.env.GenDir(rc.rule.ParentModule().Path())
}

// OutPathFor maps a resolved source path into the build-out tree,
// preserving its position relative to the module directory.
func (rc *RuleContext) OutPathFor(src string) string {
	return rc.mapToTree(rc.OutPath(), src)
}

// GenPathFor maps a resolved source path into the build-gen tree.
func (rc *RuleContext) GenPathFor(src string) string {
	return rc.mapToTree(rc.GenPath(), src)
}

func (rc *RuleContext) mapToTree(treeDir, src string) string {
	moduleDir := rc.build.env.ModuleDir(rc.rule.ParentModule().Path())
	if rel, err := filepath.Rel(moduleDir, src); err == nil && filepath.IsLocal(rel) {
		return filepath.Join(treeDir, rel)
	}
	// Sources from outside the module tree (rule outputs) keep their name.
	return filepath.Join(treeDir, filepath.Base(src))
}

// RunTaskAsync submits a task to the build's executor on behalf of this
// rule.
func (rc *RuleContext) RunTaskAsync(task ports.Task) (*async.Deferred, error) {
	return rc.build.executor.RunTaskAsync(task)
}

// Succeed resolves the rule's deferred to success.
func (rc *RuleContext) Succeed(value any) {
	rc.deferred.Succeed(value)
}

// Fail resolves the rule's deferred to failure.
func (rc *RuleContext) Fail(err error) {
	rc.deferred.Fail(err)
}

// Chain resolves the rule's deferred from another deferred, typically a
// gather over the rule's task deferreds. On failure the first concrete task
// error is extracted from the aggregate so callers see the root cause.
func (rc *RuleContext) Chain(d *async.Deferred) {
	d.OnSuccess(func(value any) {
		rc.Succeed(value)
	})
	d.OnFailure(func(err error) {
		var gathered *async.GatherError
		if errors.As(err, &gathered) {
			if first := gathered.First(); first != nil {
				rc.Fail(first)
				return
			}
		}
		rc.Fail(err)
	})
}
