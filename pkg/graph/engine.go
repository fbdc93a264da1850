package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/actiongraph/actiongraph/internal/logging"
	"github.com/actiongraph/actiongraph/pkg/schema"
)

// RunResult is the outcome of one graph run.
type RunResult struct {
	RunID       string             `json:"run_id"`
	Status      schema.RunStatus   `json:"status"`
	Path        []string           `json:"path"`
	Retries     map[string]int     `json:"retries,omitempty"` // fallback retries consumed, per step
	State       *State             `json:"-"`
	Error       *schema.GraphError `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Run executes the graph from START until END is reached or an unrecoverable
// failure occurs. On each tick the engine evaluates the current step's
// successors in edge-insertion order and selects the first whose conditions
// all hold; the selected step's retry counter is reset and its actions run.
// When no successor is eligible, the current step's fallback actions run
// and the tick repeats, bounded by the step's fallback retry budget.
//
// Execution is strictly sequential: one invocation at a time, on the calling
// goroutine, with the next dispatched only after the previous one fully
// resolved. An action or condition error ends the run immediately; fallback
// is never a guard against action failures, only against "no eligible
// successor". The returned error, if any, is also recorded on the result.
func (g *Graph) Run(ctx context.Context) (*RunResult, error) {
	state := g.state
	if state == nil {
		state = NewState()
	}

	// A fresh run starts with clean counters even when the graph is reused.
	for _, step := range g.steps {
		step.retries = 0
	}

	result := &RunResult{
		RunID:     uuid.NewString(),
		Status:    schema.RunStatusFailed,
		Path:      []string{StartStepName},
		Retries:   make(map[string]int),
		State:     state,
		StartedAt: time.Now().UTC(),
	}

	ctx = logging.WithRunID(ctx, result.RunID)
	if g.name != "" {
		ctx = logging.WithGraphName(ctx, g.name)
	}
	logger := logging.LogWith(ctx, g.logger)
	logger.Info("run started")

	current := g.steps[StartStepName]

	for current.name != EndStepName {
		if err := ctx.Err(); err != nil {
			return g.fail(result, logger, schema.NewErrorf(schema.ErrCodeCancelled,
				"run cancelled: %s", err.Error()).WithStep(current.name).WithCause(err))
		}

		selected, err := g.selectSuccessor(ctx, current, state)
		if err != nil {
			return g.fail(result, logger, err)
		}

		if selected != nil {
			selected.retries = 0
			current = selected
			result.Path = append(result.Path, current.name)

			if current.name == EndStepName {
				break
			}

			logger.Info("step selected", "step", current.name)
			if err := current.runActions(ctx, g.session, state); err != nil {
				return g.fail(result, logger, err)
			}
			continue
		}

		// Branch-resolution failure: no successor was eligible. Run the
		// current step's fallback so it can change shared state before the
		// successors are re-evaluated.
		logger.Warn("no eligible successor, running fallback",
			"step", current.name,
			"retries", current.retries,
			"max_retries", current.maxRetries)

		if err := current.runFallback(ctx, g.session, state); err != nil {
			return g.fail(result, logger, err)
		}

		if current.retries >= current.maxRetries {
			return g.fail(result, logger, schema.NewErrorf(schema.ErrCodeRetryExhausted,
				"max fallback retries reached: %d", current.maxRetries).
				WithStep(current.name).
				WithRetries(current.retries))
		}
		current.retries++
		result.Retries[current.name] = current.retries
	}

	result.Status = schema.RunStatusCompleted
	result.CompletedAt = time.Now().UTC()
	logger.Info("run completed", "path", result.Path)
	return result, nil
}

// selectSuccessor returns the first successor of current whose conditions
// all hold, or nil when none is eligible. No successor is evaluated after
// one is selected.
func (g *Graph) selectSuccessor(ctx context.Context, current *Step, state *State) (*Step, error) {
	for _, name := range g.edges[current.name] {
		candidate := g.steps[name]
		ok, err := candidate.evalConditions(ctx, g.session, state)
		if err != nil {
			return nil, err
		}
		if ok {
			return candidate, nil
		}
	}
	return nil, nil
}

func (g *Graph) fail(result *RunResult, logger *slog.Logger, err error) (*RunResult, error) {
	result.Status = schema.RunStatusFailed
	result.CompletedAt = time.Now().UTC()
	if gErr, ok := err.(*schema.GraphError); ok {
		result.Error = gErr
	}
	logger.Error("run failed", "error", err)
	return result, err
}
