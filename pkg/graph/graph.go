// Package graph implements a directed graph of named automation steps and
// the engine that executes it against a live session.
//
// A Graph is built incrementally: steps are registered and wired to a
// predecessor (or to the builder cursor), forming an adjacency relation that
// may contain branches and cycles. Two sentinel steps are always present:
// START, where every run begins, and END, whose reachability terminates a
// run successfully. Execution walks the graph one step at a time, selecting
// the first successor whose conditions all hold, and falls back to the
// current step's fallback actions, bounded by a retry budget, when no
// successor is eligible.
package graph

import (
	"log/slog"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Names of the two sentinel steps every graph carries.
const (
	StartStepName = "START"
	EndStepName   = "END"
)

// Graph is the directed structure of steps and edges describing one
// workflow, plus the builder cursor used by incremental attach operations.
// A Graph is not safe for concurrent mutation; every builder instance owns
// its own cursor, so independent graphs can be built concurrently.
type Graph struct {
	name    string
	session Session

	steps map[string]*Step
	edges map[string][]string
	order []string // step registration order, for introspection

	current string

	state             *State // nil: fresh state per run
	defaultMaxRetries int
	logger            *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithName sets a human-readable graph name used in logs.
func WithName(name string) Option {
	return func(g *Graph) { g.name = name }
}

// WithLogger sets the structured logger used by the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// WithState supplies a caller-retained state instance. When set, every run
// reuses it and the caller can inspect it after the run ends; otherwise a
// fresh State is created per run.
func WithState(state *State) Option {
	return func(g *Graph) { g.state = state }
}

// WithFallbackMaxRetries sets the graph-level default fallback retry budget,
// applied to steps that do not set their own.
func WithFallbackMaxRetries(n int) Option {
	return func(g *Graph) { g.defaultMaxRetries = n }
}

// New creates a Graph bound to the given opaque session handle. The START
// and END sentinels are registered and the builder cursor points at START.
func New(session Session, opts ...Option) *Graph {
	start, _ := NewStep(StartStepName, StepConfig{})
	end, _ := NewStep(EndStepName, StepConfig{})

	g := &Graph{
		session: session,
		steps:   map[string]*Step{StartStepName: start, EndStepName: end},
		edges:   make(map[string][]string),
		order:   []string{StartStepName, EndStepName},
		current: StartStepName,
	}

	for _, opt := range opts {
		opt(g)
	}

	// The sentinels are registered before the options run, so they pick up
	// the graph-level budget here. START needs it: a run waiting on its
	// entry conditions retries at START.
	start.maxRetries = g.defaultMaxRetries
	end.maxRetries = g.defaultMaxRetries

	if g.logger == nil {
		g.logger = slog.Default()
	}

	return g
}

// AddEdge registers step in the graph and adds a directed edge from
// predecessor (or from the builder cursor when omitted) to it, then moves
// the cursor to the new step. At most one predecessor may be given.
//
// Rejected with a configuration error: duplicate step names, the reserved
// sentinel names, an unknown predecessor, and END as predecessor (END is
// terminal and never has outgoing edges).
func (g *Graph) AddEdge(step *Step, predecessor ...string) error {
	if step == nil {
		return schema.NewError(schema.ErrCodeConfig, "step is nil")
	}
	if step.name == StartStepName || step.name == EndStepName {
		return schema.NewErrorf(schema.ErrCodeConfig,
			"%s is a reserved sentinel name", step.name)
	}
	if _, exists := g.steps[step.name]; exists {
		return schema.NewErrorf(schema.ErrCodeConfig,
			"step %q is already in the graph: names must be unique", step.name)
	}

	from, err := g.resolvePredecessor(predecessor)
	if err != nil {
		return err
	}

	if !step.maxRetriesSet {
		step.maxRetries = g.defaultMaxRetries
	}

	g.steps[step.name] = step
	g.order = append(g.order, step.name)
	g.edges[from] = append(g.edges[from], step.name)
	g.current = step.name
	return nil
}

// AddStep is a convenience that builds a minimal Step (name plus actions, no
// conditions or fallback) and attaches it to the builder cursor.
func (g *Graph) AddStep(name string, actions ...any) (*Step, error) {
	step, err := NewStep(name, StepConfig{Actions: actions})
	if err != nil {
		return nil, err
	}
	if err := g.AddEdge(step); err != nil {
		return nil, err
	}
	return step, nil
}

// End wires predecessor (or the builder cursor when omitted) to the END
// sentinel. Only reaching END terminates a run successfully; a step left
// without successors exhausts its fallback budget instead.
func (g *Graph) End(predecessor ...string) error {
	from, err := g.resolvePredecessor(predecessor)
	if err != nil {
		return err
	}
	g.edges[from] = append(g.edges[from], EndStepName)
	return nil
}

// Connect adds a directed edge between two steps already in the graph.
// This is how cycles are formed: wiring a step back to one of its
// ancestors enables retry-style loops at the graph level.
func (g *Graph) Connect(from, to string) error {
	if from == EndStepName {
		return schema.NewError(schema.ErrCodeConfig, "END is terminal and cannot have outgoing edges")
	}
	if to == StartStepName {
		return schema.NewError(schema.ErrCodeConfig, "START cannot have incoming edges")
	}
	if _, ok := g.steps[from]; !ok {
		return schema.NewErrorf(schema.ErrCodeConfig, "step %q is not in the graph", from)
	}
	if _, ok := g.steps[to]; !ok {
		return schema.NewErrorf(schema.ErrCodeConfig, "step %q is not in the graph", to)
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

// SetCurrent repoints the builder cursor to an existing step.
func (g *Graph) SetCurrent(name string) error {
	if _, ok := g.steps[name]; !ok {
		return schema.NewErrorf(schema.ErrCodeConfig,
			"cannot set cursor: step %q is not in the graph", name)
	}
	g.current = name
	return nil
}

// Step returns the registered step with the given name.
func (g *Graph) Step(name string) (*Step, error) {
	step, ok := g.steps[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "step %q is not in the graph", name)
	}
	return step, nil
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Steps returns the step names in registration order, sentinels first.
func (g *Graph) Steps() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Successors returns the outgoing edges of a step in insertion order.
func (g *Graph) Successors(name string) []string {
	succ := g.edges[name]
	out := make([]string, len(succ))
	copy(out, succ)
	return out
}

func (g *Graph) resolvePredecessor(predecessor []string) (string, error) {
	switch len(predecessor) {
	case 0:
		if g.current == EndStepName {
			return "", schema.NewError(schema.ErrCodeConfig, "END is terminal and cannot have outgoing edges")
		}
		return g.current, nil
	case 1:
		from := predecessor[0]
		if from == EndStepName {
			return "", schema.NewError(schema.ErrCodeConfig, "END is terminal and cannot have outgoing edges")
		}
		if _, ok := g.steps[from]; !ok {
			return "", schema.NewErrorf(schema.ErrCodeConfig,
				"predecessor %q is not in the graph", from)
		}
		return from, nil
	default:
		return "", schema.NewError(schema.ErrCodeConfig, "at most one predecessor may be given")
	}
}
