package scheduler_test

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/async"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/executor"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type funcTask func() (any, error)

func (f funcTask) Execute() (any, error) { return f() }

// testProject builds a single-module project from name -> deps pairs.
func testProject(t *testing.T, deps map[string][]string) *domain.Project {
	t.Helper()
	var rules []*domain.Rule
	for name, d := range deps {
		r, err := domain.NewRule(domain.KindFileSet, name, domain.RuleOptions{Deps: d})
		require.NoError(t, err)
		rules = append(rules, r)
	}
	m, err := domain.NewModule("m", rules...)
	require.NoError(t, err)
	return domain.NewProject(domain.WithModules(m))
}

// recordingRunners binds every rule kind used in tests to begin, recording
// the order rules were started in.
func recordingRunners(order *[]string, begin scheduler.BeginFunc) map[domain.RuleKind]scheduler.BeginFunc {
	return map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: func(ctx context.Context, rc *scheduler.RuleContext) error {
			*order = append(*order, rc.Rule().Path())
			return begin(ctx, rc)
		},
	}
}

func succeedInline(_ context.Context, rc *scheduler.RuleContext) error {
	rc.Succeed(nil)
	return nil
}

func TestBuildContext_DependencyOrder(t *testing.T) {
	p := testProject(t, map[string][]string{
		"a": nil,
		"b": {":a"},
		"c": {":b"},
	})

	var order []string
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil,
		recordingRunners(&order, succeedInline),
		scheduler.Options{},
	)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:c"})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"m:a", "m:b", "m:c"}, order)
	for path, res := range bc.Results() {
		assert.Equal(t, domain.StatusSucceeded, res.Status, path)
	}
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_CascadingFailure(t *testing.T) {
	p := testProject(t, map[string][]string{
		"a": nil,
		"b": {":a"},
		"c": {":b"},
	})
	boom := zerr.New("a blew up")

	var started []string
	runners := map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: func(_ context.Context, rc *scheduler.RuleContext) error {
			started = append(started, rc.Rule().Path())
			return boom
		},
	}
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil, runners,
		scheduler.Options{},
	)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:c"})
	require.NoError(t, err)
	require.False(t, ok)

	// Only the root rule ever starts its work; the failure reaches the
	// grandchild through its parent without either being invoked.
	assert.Equal(t, []string{"m:a"}, started)

	results := bc.Results()
	assert.ErrorIs(t, results["m:a"].Err, boom)
	assert.ErrorIs(t, results["m:b"].Err, domain.ErrDependencyFailed)
	assert.ErrorIs(t, results["m:c"].Err, domain.ErrDependencyFailed)
	for _, path := range []string{"m:a", "m:b", "m:c"} {
		assert.Equal(t, domain.StatusFailed, results[path].Status, path)
	}
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_StopOnError(t *testing.T) {
	// x does not depend on the failing rule but is queued behind it.
	p := testProject(t, map[string][]string{
		"a": nil,
		"x": nil,
	})
	boom := zerr.New("a blew up")

	runners := map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: func(_ context.Context, rc *scheduler.RuleContext) error {
			if rc.Rule().Name() == "a" {
				return boom
			}
			rc.Succeed(nil)
			return nil
		},
	}
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil, runners,
		scheduler.Options{StopOnError: true},
	)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:a", "m:x"})
	require.NoError(t, err)
	require.False(t, ok)

	results := bc.Results()
	assert.Equal(t, domain.StatusFailed, results["m:a"].Status)
	assert.Equal(t, domain.StatusWaiting, results["m:x"].Status, "queued rule is dropped, not run")
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_RaiseOnError(t *testing.T) {
	p := testProject(t, map[string][]string{"a": nil})
	boom := zerr.New("a blew up")

	runners := map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: func(_ context.Context, _ *scheduler.RuleContext) error {
			return boom
		},
	}
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil, runners,
		scheduler.Options{RaiseOnError: true},
	)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:a"})
	require.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_NoRunnerForKind(t *testing.T) {
	p := testProject(t, map[string][]string{"a": nil})

	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil,
		map[domain.RuleKind]scheduler.BeginFunc{},
		scheduler.Options{},
	)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:a"})
	require.NoError(t, err)
	require.False(t, ok)
	assert.ErrorIs(t, bc.Results()["m:a"].Err, scheduler.ErrNoRunner)
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_NoTargets(t *testing.T) {
	p := testProject(t, map[string][]string{"a": nil})
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil, nil,
		scheduler.Options{},
	)

	_, err := bc.ExecuteAsync(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestBuildContext_ChainExtractsFirstTaskError(t *testing.T) {
	p := testProject(t, map[string][]string{"a": nil})
	boom := zerr.New("task blew up")

	runners := map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: func(_ context.Context, rc *scheduler.RuleContext) error {
			good, err := rc.RunTaskAsync(funcTask(func() (any, error) { return 1, nil }))
			if err != nil {
				return err
			}
			bad, err := rc.RunTaskAsync(funcTask(func() (any, error) { return nil, boom }))
			if err != nil {
				return err
			}
			rc.Chain(async.Gather([]*async.Deferred{good, bad}, true))
			return nil
		},
	}
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil, runners,
		scheduler.Options{},
	)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:a"})
	require.NoError(t, err)
	require.False(t, ok)

	// The rule's failure is the task's concrete error, not the aggregate.
	assert.ErrorIs(t, bc.Results()["m:a"].Err, boom)
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_DiamondWithWorkerPool(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Diamond: b and c depend on a, d depends on both.
		p := testProject(t, map[string][]string{
			"a": nil,
			"b": {":a"},
			"c": {":a"},
			"d": {":b", ":c"},
		})

		finished := map[string]time.Time{}
		runners := map[domain.RuleKind]scheduler.BeginFunc{
			domain.KindFileSet: func(_ context.Context, rc *scheduler.RuleContext) error {
				path := rc.Rule().Path()
				d, err := rc.RunTaskAsync(funcTask(func() (any, error) {
					time.Sleep(10 * time.Millisecond)
					return path, nil
				}))
				if err != nil {
					return err
				}
				d.OnSuccess(func(any) { finished[path] = time.Now() })
				rc.Chain(d)
				return nil
			},
		}

		bc := scheduler.NewBuildContext(
			scheduler.NewEnvironment(t.TempDir()), p,
			executor.NewWorkerPool(2, nil), nil, nil, nil, runners,
			scheduler.Options{},
		)

		ok, err := bc.ExecuteSync(context.Background(), []string{"m:d"})
		require.NoError(t, err)
		require.True(t, ok)

		assert.True(t, finished["m:a"].Before(finished["m:b"]))
		assert.True(t, finished["m:a"].Before(finished["m:c"]))
		assert.True(t, finished["m:b"].Before(finished["m:d"]))
		assert.True(t, finished["m:c"].Before(finished["m:d"]))
		require.NoError(t, bc.Close(true))
	})
}

func TestBuildContext_RunInProgress(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := testProject(t, map[string][]string{"a": nil})
		runners := map[domain.RuleKind]scheduler.BeginFunc{
			domain.KindFileSet: func(_ context.Context, rc *scheduler.RuleContext) error {
				d, err := rc.RunTaskAsync(funcTask(func() (any, error) {
					time.Sleep(time.Millisecond)
					return nil, nil
				}))
				if err != nil {
					return err
				}
				rc.Chain(d)
				return nil
			},
		}
		pool := executor.NewWorkerPool(1, nil)
		bc := scheduler.NewBuildContext(
			scheduler.NewEnvironment(t.TempDir()), p,
			pool, nil, nil, nil, runners,
			scheduler.Options{},
		)

		d, err := bc.ExecuteAsync(context.Background(), []string{"m:a"})
		require.NoError(t, err)

		_, err = bc.ExecuteAsync(context.Background(), []string{"m:a"})
		assert.ErrorIs(t, err, scheduler.ErrRunInProgress)

		pool.Wait(d)
		require.True(t, d.Resolved())
		require.NoError(t, bc.Close(true))
	})
}

func TestBuildContext_RuleContextsAreOneShot(t *testing.T) {
	p := testProject(t, map[string][]string{"a": nil})
	var order []string
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, nil,
		recordingRunners(&order, succeedInline),
		scheduler.Options{},
	)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:a"})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = bc.ExecuteSync(context.Background(), []string{"m:a"})
	require.ErrorIs(t, err, scheduler.ErrRuleAlreadyExecuted)
	assert.Equal(t, []string{"m:a"}, order, "rule must not execute twice in one build context")
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_CacheSkip(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)

	root := t.TempDir()
	p := testProject(t, map[string][]string{"a": nil})
	var invocations int
	runners := map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: func(_ context.Context, rc *scheduler.RuleContext) error {
			invocations++
			rc.AppendOutputs("out/a.txt")
			rc.Succeed(nil)
			return nil
		},
	}
	newContext := func() *scheduler.BuildContext {
		return scheduler.NewBuildContext(
			scheduler.NewEnvironment(root), p,
			executor.NewInProcess(), cache, nil, nil, runners,
			scheduler.Options{},
		)
	}

	// First build: sources changed, rule executes and commits.
	cache.EXPECT().ComputeDelta("m:a", gomock.Any()).
		Return(&domain.FileDelta{AddedFiles: []string{"a.go"}}, nil)
	cache.EXPECT().Commit("m:a", gomock.Any(), []string{"out/a.txt"}).Return(nil)

	first := newContext()
	ok, err := first.ExecuteSync(context.Background(), []string{"m:a"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, invocations)
	require.NoError(t, first.Close(true))

	// Second build over the same cache: no changes and known outputs, rule
	// is skipped.
	cache.EXPECT().ComputeDelta("m:a", gomock.Any()).
		Return(&domain.FileDelta{UnchangedFiles: []string{"a.go"}}, nil)
	cache.EXPECT().KnownOutputs("m:a").Return([]string{"out/a.txt"})

	second := newContext()
	ok, err = second.ExecuteSync(context.Background(), []string{"m:a"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, invocations, "cached rule must not run again")

	res := second.Results()["m:a"]
	assert.True(t, res.Cached)
	assert.Equal(t, []string{"out/a.txt"}, res.Outputs)
	require.NoError(t, second.Close(true))
}

func TestBuildContext_ForceBypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)

	p := testProject(t, map[string][]string{"a": nil})
	var invocations int
	runners := map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: func(_ context.Context, rc *scheduler.RuleContext) error {
			invocations++
			rc.Succeed(nil)
			return nil
		},
	}
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), cache, nil, nil, runners,
		scheduler.Options{Force: true},
	)

	// Force never consults the delta, only commits the new state.
	cache.EXPECT().Commit("m:a", gomock.Any(), gomock.Any()).Return(nil)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:a"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, invocations)
	require.NoError(t, bc.Close(true))
}

func TestBuildContext_TelemetryVertices(t *testing.T) {
	ctrl := gomock.NewController(t)
	telemetry := mocks.NewMockTelemetry(ctrl)
	vertex := mocks.NewMockVertex(ctrl)

	p := testProject(t, map[string][]string{"a": nil})
	runners := map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet: succeedInline,
	}
	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(t.TempDir()), p,
		executor.NewInProcess(), nil, nil, telemetry, runners,
		scheduler.Options{},
	)

	telemetry.EXPECT().Record(gomock.Any(), "m:a").
		DoAndReturn(func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
			return ctx, vertex
		})
	vertex.EXPECT().Complete(nil)

	ok, err := bc.ExecuteSync(context.Background(), []string{"m:a"})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, bc.Close(true))
}
