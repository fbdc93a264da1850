package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// --- bindAction ---

func TestBindAction_Shapes(t *testing.T) {
	cases := []struct {
		name        string
		fn          any
		wantSession bool
		wantState   bool
	}{
		{"bare", func(ctx context.Context) error { return nil }, false, false},
		{"session only", func(ctx context.Context, s Session) error { return nil }, true, false},
		{"state only", func(ctx context.Context, st *State) error { return nil }, false, true},
		{"session and state", func(ctx context.Context, s Session, st *State) error { return nil }, true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bound, err := bindAction(tc.fn)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSession, bound.caps.session)
			assert.Equal(t, tc.wantState, bound.caps.state)
		})
	}
}

func TestBindAction_SelectiveDispatch(t *testing.T) {
	session := "the-session"
	state := NewState()

	var gotSession Session
	bound, err := bindAction(func(ctx context.Context, s Session) error {
		gotSession = s
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bound.fn(context.Background(), session, state))
	assert.Equal(t, session, gotSession)

	// A callable declaring only state never receives the session handle.
	var gotState *State
	bound, err = bindAction(func(ctx context.Context, st *State) error {
		gotState = st
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bound.fn(context.Background(), session, state))
	assert.Same(t, state, gotState)
}

func TestBindAction_UnrecognizedSignature(t *testing.T) {
	cases := []struct {
		name string
		fn   any
	}{
		{"nil", nil},
		{"no context", func() error { return nil }},
		{"no error result", func(ctx context.Context) {}},
		{"unknown parameter type", func(ctx context.Context, n int) error { return nil }},
		{"swapped order", func(ctx context.Context, st *State, s Session) error { return nil }},
		{"not a function", 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bindAction(tc.fn)
			require.Error(t, err)
			assert.Equal(t, schema.ErrCodeConfig, schema.CodeOf(err))
		})
	}
}

// --- bindCondition ---

func TestBindCondition_Shapes(t *testing.T) {
	for _, fn := range []any{
		func(ctx context.Context) (bool, error) { return true, nil },
		func(ctx context.Context, s Session) (bool, error) { return true, nil },
		func(ctx context.Context, st *State) (bool, error) { return true, nil },
		func(ctx context.Context, s Session, st *State) (bool, error) { return true, nil },
	} {
		bound, err := bindCondition(fn)
		require.NoError(t, err)
		ok, err := bound.fn(context.Background(), nil, NewState())
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestBindCondition_RejectsActionShape(t *testing.T) {
	_, err := bindCondition(func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfig, schema.CodeOf(err))
}

func TestBindActions_ReportsIndex(t *testing.T) {
	_, err := bindActions([]any{
		func(ctx context.Context) error { return nil },
		"not a callable",
	})
	require.Error(t, err)

	var gErr *schema.GraphError
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, 1, gErr.Details["index"])
}
