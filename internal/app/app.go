// Package app implements the application layer for forge.
package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/executor"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	project   *domain.Project
	env       *scheduler.Environment
	cache     ports.RuleCache
	logger    ports.Logger
	telemetry ports.Telemetry
	runners   map[domain.RuleKind]scheduler.BeginFunc
}

// New creates a new App instance.
func New(
	project *domain.Project,
	env *scheduler.Environment,
	cache ports.RuleCache,
	log ports.Logger,
	telemetry ports.Telemetry,
	runners map[domain.RuleKind]scheduler.BeginFunc,
) *App {
	return &App{
		project:   project,
		env:       env,
		cache:     cache,
		logger:    log,
		telemetry: telemetry,
		runners:   runners,
	}
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	// Force runs every rule even when the cache reports no changes.
	Force bool
	// StopOnError drops all still-queued rules after the first failure.
	StopOnError bool
	// Parallelism is the number of concurrent tasks. Zero means one task
	// per CPU; one runs everything in process.
	Parallelism int
}

// Build executes the target rules and returns the per-rule results. The
// returned error is the aggregate build failure when any rule failed; the
// results carry the individual outcomes either way.
func (a *App) Build(ctx context.Context, targets []string, opts BuildOptions) (map[string]*scheduler.RuleResult, error) {
	parallelism := opts.Parallelism
	if parallelism == 0 {
		parallelism = runtime.NumCPU()
	}

	var exec ports.TaskExecutor
	if parallelism <= 1 {
		exec = executor.NewInProcess()
	} else {
		exec = executor.NewWorkerPool(parallelism, a.logger)
	}

	bc := scheduler.NewBuildContext(
		a.env, a.project, exec,
		a.cache, a.logger, a.telemetry,
		a.runners,
		scheduler.Options{
			Force:        opts.Force,
			StopOnError:  opts.StopOnError,
			RaiseOnError: true,
		},
	)

	_, runErr := bc.ExecuteSync(ctx, targets)
	results := bc.Results()
	if err := bc.Close(true); err != nil && runErr == nil {
		runErr = err
	}
	return results, runErr
}

// Sequence returns the rule paths that building the targets would execute,
// in dependency order.
func (a *App) Sequence(targets []string) ([]string, error) {
	if len(targets) == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}
	rules, err := domain.NewRuleGraph(a.project).Sequence(targets)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(rules))
	for i, r := range rules {
		paths[i] = r.Path()
	}
	return paths, nil
}

// Clean removes all build artifacts: the output tree, the generated-files
// tree, and the cache state.
func (a *App) Clean() error {
	dirs := []string{
		a.env.OutRoot(),
		a.env.GenRoot(),
		filepath.Join(a.env.RootDir(), ".forge"),
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "removing build artifacts"), "dir", dir)
		}
	}
	return nil
}

// Close releases the app's long-lived resources.
func (a *App) Close() error {
	if a.telemetry == nil {
		return nil
	}
	return a.telemetry.Close()
}
