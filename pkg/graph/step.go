package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// StepConfig describes a Step before binding. Actions, Conditions and
// FallbackActions accept callables in the shapes documented on bindAction
// and bindCondition; anything else is rejected by NewStep.
type StepConfig struct {
	// Actions run in order when the step is selected as a successor.
	// The first error aborts the rest of the list.
	Actions []any

	// Conditions gate the step's eligibility as a successor. All must hold
	// (logical AND, short-circuit); an empty list means always eligible.
	Conditions []any

	// FallbackActions run when the step is the current step and none of its
	// successors is eligible.
	FallbackActions []any

	// FallbackMaxRetries bounds how many times the fallback sequence may be
	// retried before the run fails. Nil inherits the graph-level default.
	FallbackMaxRetries *int
}

// Step is the atomic unit of work in a graph: a named, ordered list of
// actions plus optional conditions and a fallback sequence with a retry
// budget. A Step belongs to at most one Graph.
type Step struct {
	name     string
	id       string
	actions  []boundAction
	conds    []boundCondition
	fallback []boundAction

	maxRetries    int
	maxRetriesSet bool

	// retries is the engine-owned fallback counter. It is reset whenever
	// the step is entered as a normal successor and never exceeds the
	// resolved budget.
	retries int
}

// NewStep builds a Step from its config, binding every callable up front so
// that unsupported signatures surface as configuration errors before any
// run starts.
func NewStep(name string, cfg StepConfig) (*Step, error) {
	if name == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "step name must be a non-empty string")
	}

	actions, err := bindActions(cfg.Actions)
	if err != nil {
		return nil, withStepName(err, name)
	}
	conds, err := bindConditions(cfg.Conditions)
	if err != nil {
		return nil, withStepName(err, name)
	}
	fallback, err := bindActions(cfg.FallbackActions)
	if err != nil {
		return nil, withStepName(err, name)
	}

	s := &Step{
		name:     name,
		id:       uuid.NewString(),
		actions:  actions,
		conds:    conds,
		fallback: fallback,
	}

	if cfg.FallbackMaxRetries != nil {
		if *cfg.FallbackMaxRetries < 0 {
			return nil, schema.NewErrorf(schema.ErrCodeConfig,
				"fallback_max_retries must be non-negative, got %d", *cfg.FallbackMaxRetries).WithStep(name)
		}
		s.maxRetries = *cfg.FallbackMaxRetries
		s.maxRetriesSet = true
	}

	return s, nil
}

// Name returns the step name, its identity within a graph.
func (s *Step) Name() string { return s.name }

// ID returns the step's random unique ID.
func (s *Step) ID() string { return s.id }

// FallbackMaxRetries returns the resolved fallback retry budget.
func (s *Step) FallbackMaxRetries() int { return s.maxRetries }

// runActions executes the action list strictly in order. The first error
// aborts the remaining actions and propagates; side effects and state
// writes already performed stay visible.
func (s *Step) runActions(ctx context.Context, session Session, state *State) error {
	for i, action := range s.actions {
		if err := action.fn(ctx, session, state); err != nil {
			return schema.NewErrorf(schema.ErrCodeActionFailed,
				"action %d failed: %s", i, err.Error()).
				WithStep(s.name).
				WithCause(err)
		}
	}
	return nil
}

// evalConditions reports whether every condition holds, short-circuiting on
// the first false. An empty condition list evaluates to true.
func (s *Step) evalConditions(ctx context.Context, session Session, state *State) (bool, error) {
	for i, cond := range s.conds {
		ok, err := cond.fn(ctx, session, state)
		if err != nil {
			return false, schema.NewErrorf(schema.ErrCodeConditionFailed,
				"condition %d failed: %s", i, err.Error()).
				WithStep(s.name).
				WithCause(err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// runFallback executes the fallback action list exactly like runActions.
// The retry counter is the engine's responsibility, not the step's.
func (s *Step) runFallback(ctx context.Context, session Session, state *State) error {
	for i, action := range s.fallback {
		if err := action.fn(ctx, session, state); err != nil {
			return schema.NewErrorf(schema.ErrCodeActionFailed,
				"fallback action %d failed: %s", i, err.Error()).
				WithStep(s.name).
				WithCause(err).
				WithDetails(map[string]any{"phase": "fallback"})
		}
	}
	return nil
}

func withStepName(err error, name string) error {
	if gErr, ok := err.(*schema.GraphError); ok {
		return gErr.WithStep(name)
	}
	return err
}
