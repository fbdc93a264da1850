package graph

import (
	"context"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Session is the opaque automation-session handle (e.g. a browser driver).
// The engine receives it at graph construction and forwards it unchanged to
// every callable that asks for it; it never calls methods on it itself.
type Session = any

// capabilities records, once at bind time, which of the two contextual
// resources a callable asked for. Dispatch is a plain branch over the four
// recognized shapes; signatures are never re-inspected per call.
type capabilities struct {
	session bool
	state   bool
}

// boundAction is an action callable normalized to the uniform invocation
// shape. The callable runs on the engine goroutine and may block; the engine
// does not proceed until it returns.
type boundAction struct {
	caps capabilities
	fn   func(ctx context.Context, session Session, state *State) error
}

// boundCondition is a condition callable normalized to the uniform shape.
type boundCondition struct {
	caps capabilities
	fn   func(ctx context.Context, session Session, state *State) (bool, error)
}

// bindAction validates and wraps an action callable. Recognized shapes:
//
//	func(context.Context) error
//	func(context.Context, graph.Session) error
//	func(context.Context, *graph.State) error
//	func(context.Context, graph.Session, *graph.State) error
//
// Anything else is a caller bug and is rejected immediately, before any run
// starts. A callable that does not ask for the session or the state is
// simply called without it.
func bindAction(fn any) (boundAction, error) {
	if fn == nil {
		return boundAction{}, schema.NewError(schema.ErrCodeConfig, "action callable is nil")
	}

	switch f := fn.(type) {
	case func(context.Context) error:
		return boundAction{
			fn: func(ctx context.Context, _ Session, _ *State) error {
				return f(ctx)
			},
		}, nil

	case func(context.Context, Session) error:
		return boundAction{
			caps: capabilities{session: true},
			fn: func(ctx context.Context, session Session, _ *State) error {
				return f(ctx, session)
			},
		}, nil

	case func(context.Context, *State) error:
		return boundAction{
			caps: capabilities{state: true},
			fn: func(ctx context.Context, _ Session, state *State) error {
				return f(ctx, state)
			},
		}, nil

	case func(context.Context, Session, *State) error:
		return boundAction{
			caps: capabilities{session: true, state: true},
			fn:   f,
		}, nil

	default:
		return boundAction{}, schema.NewErrorf(schema.ErrCodeConfig,
			"unsupported action signature %T: parameters must be a subset of (context.Context, graph.Session, *graph.State) returning error", fn)
	}
}

// bindCondition validates and wraps a condition callable. Same parameter
// shapes as bindAction, returning (bool, error).
func bindCondition(fn any) (boundCondition, error) {
	if fn == nil {
		return boundCondition{}, schema.NewError(schema.ErrCodeConfig, "condition callable is nil")
	}

	switch f := fn.(type) {
	case func(context.Context) (bool, error):
		return boundCondition{
			fn: func(ctx context.Context, _ Session, _ *State) (bool, error) {
				return f(ctx)
			},
		}, nil

	case func(context.Context, Session) (bool, error):
		return boundCondition{
			caps: capabilities{session: true},
			fn: func(ctx context.Context, session Session, _ *State) (bool, error) {
				return f(ctx, session)
			},
		}, nil

	case func(context.Context, *State) (bool, error):
		return boundCondition{
			caps: capabilities{state: true},
			fn: func(ctx context.Context, _ Session, state *State) (bool, error) {
				return f(ctx, state)
			},
		}, nil

	case func(context.Context, Session, *State) (bool, error):
		return boundCondition{
			caps: capabilities{session: true, state: true},
			fn:   f,
		}, nil

	default:
		return boundCondition{}, schema.NewErrorf(schema.ErrCodeConfig,
			"unsupported condition signature %T: parameters must be a subset of (context.Context, graph.Session, *graph.State) returning (bool, error)", fn)
	}
}

func bindActions(fns []any) ([]boundAction, error) {
	bound := make([]boundAction, 0, len(fns))
	for i, fn := range fns {
		b, err := bindAction(fn)
		if err != nil {
			return nil, wrapBindError(err, i)
		}
		bound = append(bound, b)
	}
	return bound, nil
}

func bindConditions(fns []any) ([]boundCondition, error) {
	bound := make([]boundCondition, 0, len(fns))
	for i, fn := range fns {
		b, err := bindCondition(fn)
		if err != nil {
			return nil, wrapBindError(err, i)
		}
		bound = append(bound, b)
	}
	return bound, nil
}

func wrapBindError(err error, index int) error {
	if gErr, ok := err.(*schema.GraphError); ok {
		return gErr.WithDetails(map[string]any{"index": index})
	}
	return err
}
