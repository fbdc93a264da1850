package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

func setKey(key string, value any) any {
	return func(ctx context.Context, state *State) error {
		state.Set(key, value)
		return nil
	}
}

func whenKey(key string) any {
	return func(ctx context.Context, state *State) (bool, error) {
		v, _ := state.Get(key)
		b, _ := v.(bool)
		return b, nil
	}
}

func always(ctx context.Context) (bool, error) { return true, nil }
func never(ctx context.Context) (bool, error)  { return false, nil }

// --- scenarios from the data model contract ---

func TestRun_Linear(t *testing.T) {
	g := New(nil)
	_, err := g.AddStep("a", setKey("x", 1))
	require.NoError(t, err)
	require.NoError(t, g.End())

	result, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schema.RunStatusCompleted, result.Status)
	assert.Equal(t, []string{StartStepName, "a", EndStepName}, result.Path)
	assert.Equal(t, 1, result.State.Value("x"))
	assert.NotEmpty(t, result.RunID)
}

func TestRun_ConditionalBranch(t *testing.T) {
	visited := make([]string, 0, 2)
	visit := func(name string) any {
		return func(ctx context.Context) error {
			visited = append(visited, name)
			return nil
		}
	}

	g := New(nil)
	a := mustStep(t, "a", StepConfig{Actions: []any{visit("a")}, Conditions: []any{never}})
	b := mustStep(t, "b", StepConfig{Actions: []any{visit("b")}, Conditions: []any{always}})
	require.NoError(t, g.AddEdge(a, StartStepName))
	require.NoError(t, g.AddEdge(b, StartStepName))
	require.NoError(t, g.End("b"))

	result, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, visited)
	assert.Equal(t, []string{StartStepName, "b", EndStepName}, result.Path)
}

func TestRun_FirstMatchDeterminism(t *testing.T) {
	// Both successors are eligible; the earliest-inserted edge must win,
	// and the second candidate must not even be evaluated.
	bEvaluated := false
	g := New(nil)
	a := mustStep(t, "a", StepConfig{Conditions: []any{always}})
	b := mustStep(t, "b", StepConfig{Conditions: []any{func(ctx context.Context) (bool, error) {
		bEvaluated = true
		return true, nil
	}}})
	require.NoError(t, g.AddEdge(a, StartStepName))
	require.NoError(t, g.AddEdge(b, StartStepName))
	require.NoError(t, g.End("a"))
	require.NoError(t, g.End("b"))

	result, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{StartStepName, "a", EndStepName}, result.Path)
	assert.False(t, bEvaluated)
}

func TestRun_FallbackExhaustion(t *testing.T) {
	// A step whose successors never become eligible triggers the fallback
	// exactly maxRetries+1 times before failing.
	fallbackRuns := 0
	retries := 2

	g := New(nil)
	a := mustStep(t, "a", StepConfig{
		FallbackActions: []any{func(ctx context.Context) error {
			fallbackRuns++
			return nil
		}},
		FallbackMaxRetries: &retries,
	})
	require.NoError(t, g.AddEdge(a))

	result, err := g.Run(context.Background())
	require.Error(t, err)

	assert.True(t, schema.IsRetryExhausted(err))
	assert.Equal(t, 3, fallbackRuns)
	assert.Equal(t, schema.RunStatusFailed, result.Status)

	var gErr *schema.GraphError
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, "a", gErr.Step)
	assert.Equal(t, 2, gErr.Retries)
}

func TestRun_FallbackUnblocksSuccessor(t *testing.T) {
	// Re-evaluation after a fallback run must observe fresh state: the
	// fallback sets the flag the successor's condition reads.
	retries := 3
	g := New(nil)
	a := mustStep(t, "a", StepConfig{
		FallbackActions:    []any{setKey("done", true)},
		FallbackMaxRetries: &retries,
	})
	require.NoError(t, g.AddEdge(a))

	b := mustStep(t, "b", StepConfig{Conditions: []any{whenKey("done")}})
	require.NoError(t, g.AddEdge(b, "a"))
	require.NoError(t, g.End("b"))

	result, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{StartStepName, "a", "b", EndStepName}, result.Path)
	assert.Equal(t, 1, result.Retries["a"])
}

// --- failure modes ---

func TestRun_ActionFailureIsTerminal(t *testing.T) {
	boom := errors.New("boom")
	fallbackRan := false
	retries := 5

	g := New(nil)
	a := mustStep(t, "a", StepConfig{
		Actions: []any{func(ctx context.Context) error { return boom }},
		FallbackActions: []any{func(ctx context.Context) error {
			fallbackRan = true
			return nil
		}},
		FallbackMaxRetries: &retries,
	})
	require.NoError(t, g.AddEdge(a))
	require.NoError(t, g.End())

	result, err := g.Run(context.Background())
	require.Error(t, err)

	// Fallback only covers "no eligible successor", never action failures.
	assert.False(t, fallbackRan)
	assert.Equal(t, schema.ErrCodeActionFailed, schema.CodeOf(err))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, schema.RunStatusFailed, result.Status)
}

func TestRun_ActionFailureAbortsRemainingActions(t *testing.T) {
	secondRan := false
	g := New(nil)
	a := mustStep(t, "a", StepConfig{Actions: []any{
		setKey("first", true),
		func(ctx context.Context) error { return errors.New("boom") },
		func(ctx context.Context) error { secondRan = true; return nil },
	}})
	require.NoError(t, g.AddEdge(a))
	require.NoError(t, g.End())

	result, err := g.Run(context.Background())
	require.Error(t, err)

	// Partial execution stays visible through shared state.
	assert.False(t, secondRan)
	assert.Equal(t, true, result.State.Value("first"))
}

func TestRun_FallbackErrorPropagatesLikeActionFailure(t *testing.T) {
	retries := 3
	fallbackRuns := 0
	g := New(nil)
	a := mustStep(t, "a", StepConfig{
		FallbackActions: []any{func(ctx context.Context) error {
			fallbackRuns++
			return errors.New("fallback broke")
		}},
		FallbackMaxRetries: &retries,
	})
	require.NoError(t, g.AddEdge(a))

	_, err := g.Run(context.Background())
	require.Error(t, err)

	// A failing fallback is a bug signal, not a consumed retry.
	assert.Equal(t, 1, fallbackRuns)
	assert.Equal(t, schema.ErrCodeActionFailed, schema.CodeOf(err))
}

func TestRun_ConditionErrorIsTerminal(t *testing.T) {
	g := New(nil)
	a := mustStep(t, "a", StepConfig{Conditions: []any{func(ctx context.Context) (bool, error) {
		return false, errors.New("condition broke")
	}}})
	require.NoError(t, g.AddEdge(a))
	require.NoError(t, g.End("a"))

	_, err := g.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConditionFailed, schema.CodeOf(err))
}

func TestRun_GraphDefaultBudgetGovernsStart(t *testing.T) {
	// The graph-level budget must reach the START sentinel: entry
	// conditions that need a few re-evaluations retry at START.
	evals := 0
	g := New(nil, WithFallbackMaxRetries(5))
	a := mustStep(t, "a", StepConfig{Conditions: []any{func(ctx context.Context) (bool, error) {
		evals++
		return evals >= 3, nil
	}}})
	require.NoError(t, g.AddEdge(a, StartStepName))
	require.NoError(t, g.End())

	result, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schema.RunStatusCompleted, result.Status)
	assert.Equal(t, 3, evals)
	assert.Equal(t, 2, result.Retries[StartStepName])
}

func TestRun_StartWithNoSuccessorsExhaustsImmediately(t *testing.T) {
	g := New(nil)
	_, err := g.Run(context.Background())
	require.Error(t, err)

	assert.True(t, schema.IsRetryExhausted(err))
	var gErr *schema.GraphError
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, StartStepName, gErr.Step)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(nil)
	_, err := g.AddStep("a", noop)
	require.NoError(t, err)
	require.NoError(t, g.End())

	_, err = g.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeCancelled, schema.CodeOf(err))
}

// --- cycles and state threading ---

func TestRun_GraphCycleRetryLoop(t *testing.T) {
	// a -> b -> a until the counter reaches 3, then a -> done -> END.
	g := New(nil)

	a := mustStep(t, "a", StepConfig{Actions: []any{func(ctx context.Context, state *State) error {
		n, _ := state.Value("count").(int)
		state.Set("count", n+1)
		return nil
	}}})
	require.NoError(t, g.AddEdge(a))

	b := mustStep(t, "b", StepConfig{Conditions: []any{func(ctx context.Context, state *State) (bool, error) {
		n, _ := state.Value("count").(int)
		return n < 3, nil
	}}})
	require.NoError(t, g.AddEdge(b, "a"))
	require.NoError(t, g.AddEdge(mustStep(t, "loop", StepConfig{}), "b"))
	require.NoError(t, g.Connect("loop", "a"))

	done := mustStep(t, "done", StepConfig{Conditions: []any{func(ctx context.Context, state *State) (bool, error) {
		n, _ := state.Value("count").(int)
		return n >= 3, nil
	}}})
	require.NoError(t, g.AddEdge(done, "a"))
	require.NoError(t, g.End("done"))

	result, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.State.Value("count"))
	assert.Equal(t, EndStepName, result.Path[len(result.Path)-1])
}

func TestRun_RetryCounterResetOnNormalEntry(t *testing.T) {
	// First visit of a consumes a fallback retry; the cycle re-enters a as
	// a normal successor, which must reset its counter so the second visit
	// gets the full budget again.
	retries := 1
	fallbackRuns := 0

	g := New(nil)
	a := mustStep(t, "a", StepConfig{
		FallbackActions: []any{func(ctx context.Context, state *State) error {
			fallbackRuns++
			visits, _ := state.Value("visits").(int)
			state.Set("visits", visits+1)
			return nil
		}},
		FallbackMaxRetries: &retries,
	})
	require.NoError(t, g.AddEdge(a))

	back := mustStep(t, "back", StepConfig{
		Conditions: []any{func(ctx context.Context, state *State) (bool, error) {
			visits, _ := state.Value("visits").(int)
			looped, _ := state.Value("looped").(bool)
			return visits == 1 && !looped, nil
		}},
		Actions: []any{setKey("looped", true)},
	})
	require.NoError(t, g.AddEdge(back, "a"))
	require.NoError(t, g.Connect("back", "a"))

	done := mustStep(t, "done", StepConfig{Conditions: []any{func(ctx context.Context, state *State) (bool, error) {
		visits, _ := state.Value("visits").(int)
		return visits >= 2, nil
	}}})
	require.NoError(t, g.AddEdge(done, "a"))
	require.NoError(t, g.End("done"))

	_, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fallbackRuns)
}

func TestRun_CallerRetainedState(t *testing.T) {
	state := NewStateFrom(map[string]any{"seed": "v"})
	g := New(nil, WithState(state))
	_, err := g.AddStep("a", setKey("x", 1))
	require.NoError(t, err)
	require.NoError(t, g.End())

	result, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Same(t, state, result.State)
	assert.Equal(t, "v", state.Value("seed"))
	assert.Equal(t, 1, state.Value("x"))
}

func TestRun_SessionForwardedOpaque(t *testing.T) {
	type fakeDriver struct{ url string }
	driver := &fakeDriver{}

	g := New(driver)
	_, err := g.AddStep("go", func(ctx context.Context, session Session) error {
		session.(*fakeDriver).url = "https://example.test"
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.End())

	_, err = g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", driver.url)
}
