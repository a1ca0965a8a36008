package async_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/async"
)

func TestDeferred_SucceedInvokesListenersInOrder(t *testing.T) {
	d := async.New()

	var calls []string
	d.OnSuccess(func(value any) {
		calls = append(calls, "first:"+value.(string))
	})
	d.OnSuccess(func(value any) {
		calls = append(calls, "second:"+value.(string))
	})
	d.OnFailure(func(err error) {
		t.Error("failure listener invoked on success")
	})

	require.False(t, d.Resolved())
	d.Succeed("payload")
	require.True(t, d.Resolved())
	assert.False(t, d.Failed())

	// A listener registered after resolution fires immediately.
	d.OnSuccess(func(value any) {
		calls = append(calls, "late:"+value.(string))
	})

	assert.Equal(t, []string{"first:payload", "second:payload", "late:payload"}, calls)
}

func TestDeferred_FailInvokesErrbacks(t *testing.T) {
	d := async.New()
	boom := errors.New("boom")

	var got error
	d.OnFailure(func(err error) { got = err })
	d.OnSuccess(func(any) { t.Error("success listener invoked on failure") })

	d.Fail(boom)

	require.True(t, d.Resolved())
	assert.True(t, d.Failed())
	assert.Equal(t, boom, got)
	assert.Equal(t, boom, d.Err())

	// Late success listener on a failed deferred is dropped silently.
	d.OnSuccess(func(any) { t.Error("late success listener invoked on failure") })

	// Late failure listener fires immediately.
	var late error
	d.OnFailure(func(err error) { late = err })
	assert.Equal(t, boom, late)
}

func TestDeferred_DoubleResolutionPanics(t *testing.T) {
	cases := []struct {
		name          string
		first, second func(*async.Deferred)
	}{
		{"succeed then succeed", succeed, succeed},
		{"succeed then fail", succeed, fail},
		{"fail then fail", fail, fail},
		{"fail then succeed", fail, succeed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := async.New()
			tc.first(d)
			require.Panics(t, func() { tc.second(d) })
		})
	}
}

func succeed(d *async.Deferred) { d.Succeed(nil) }
func fail(d *async.Deferred)    { d.Fail(errors.New("boom")) }

func TestGather_EmptyResolvesImmediately(t *testing.T) {
	g := async.Gather(nil, false)
	require.True(t, g.Resolved())
	assert.False(t, g.Failed())
	assert.Empty(t, g.Value().([]async.Result))
}

func TestGather_PreservesInputOrder(t *testing.T) {
	a, b, c := async.New(), async.New(), async.New()
	g := async.Gather([]*async.Deferred{a, b, c}, false)

	// Resolve out of order.
	c.Succeed("c")
	a.Fail(errors.New("a failed"))
	assert.False(t, g.Resolved())
	b.Succeed("b")

	require.True(t, g.Resolved())
	require.False(t, g.Failed(), "gather without fail-fast never fails")

	results := g.Value().([]async.Result)
	require.Len(t, results, 3)
	assert.False(t, results[0].OK)
	assert.EqualError(t, results[0].Err, "a failed")
	assert.True(t, results[1].OK)
	assert.Equal(t, "b", results[1].Value)
	assert.True(t, results[2].OK)
	assert.Equal(t, "c", results[2].Value)
}

func TestGather_FailIfAny(t *testing.T) {
	a, b := async.New(), async.New()
	g := async.Gather([]*async.Deferred{a, b}, true)

	a.Succeed(1)
	boom := errors.New("boom")
	b.Fail(boom)

	require.True(t, g.Resolved())
	require.True(t, g.Failed())

	var gatherErr *async.GatherError
	require.ErrorAs(t, g.Err(), &gatherErr)
	require.Len(t, gatherErr.Results, 2)
	assert.Equal(t, boom, gatherErr.First())
}

func TestGather_FailIfAnyAllSucceed(t *testing.T) {
	a, b := async.New(), async.New()
	g := async.Gather([]*async.Deferred{a, b}, true)

	a.Succeed(1)
	b.Succeed(2)

	require.True(t, g.Resolved())
	assert.False(t, g.Failed())
}
