package mcp

import (
	"context"
	"sort"
	"sync"

	"github.com/actiongraph/actiongraph/pkg/graph"
	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Builder produces a fresh graph, bound to a fresh session, for one run.
// Runs must not share builder output: a graph holds per-run retry counters
// and a builder cursor.
type Builder func() (*graph.Graph, error)

// GraphInfo is the listing entry for a registered graph.
type GraphInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StepCount   int    `json:"step_count"`
}

// StepDescription is one step in a graph description, with its outgoing
// edges in insertion order.
type StepDescription struct {
	Name       string   `json:"name"`
	Successors []string `json:"successors,omitempty"`
}

// GraphDescription is the full topology of a registered graph.
type GraphDescription struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Steps       []StepDescription `json:"steps"`
}

type graphEntry struct {
	description string
	builder     Builder
	topology    []StepDescription
}

// GraphSet is a thread-safe collection of named graph builders. It is the
// execution surface shared by the MCP tools and the scheduler.
type GraphSet struct {
	mu      sync.RWMutex
	entries map[string]*graphEntry
}

// NewGraphSet creates an empty GraphSet.
func NewGraphSet() *GraphSet {
	return &GraphSet{
		entries: make(map[string]*graphEntry),
	}
}

// Register adds a named graph builder. The builder is invoked once to
// validate it and snapshot the topology for Describe. Returns error on
// duplicate name or a failing builder.
func (gs *GraphSet) Register(name, description string, builder Builder) error {
	if name == "" {
		return schema.NewError(schema.ErrCodeValidation, "graph name is empty")
	}
	if builder == nil {
		return schema.NewError(schema.ErrCodeValidation, "graph builder is nil")
	}

	g, err := builder()
	if err != nil {
		return err
	}
	if g == nil {
		return schema.NewErrorf(schema.ErrCodeConfig, "builder for graph %q returned nil", name)
	}

	topology := make([]StepDescription, 0, len(g.Steps()))
	for _, step := range g.Steps() {
		topology = append(topology, StepDescription{
			Name:       step,
			Successors: g.Successors(step),
		})
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, exists := gs.entries[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "graph %q already registered", name)
	}

	gs.entries[name] = &graphEntry{
		description: description,
		builder:     builder,
		topology:    topology,
	}
	return nil
}

// Run builds a fresh graph for the given name and executes it. A non-empty
// initial map seeds the run's state before the first step, so callers can
// parameterize a run (credentials, target ids) without a dedicated builder.
func (gs *GraphSet) Run(ctx context.Context, name string, initial map[string]any) (*graph.RunResult, error) {
	gs.mu.RLock()
	entry, ok := gs.entries[name]
	gs.mu.RUnlock()
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "graph %q not registered", name)
	}

	g, err := entry.builder()
	if err != nil {
		return nil, err
	}
	if len(initial) > 0 {
		graph.WithState(graph.NewStateFrom(initial))(g)
	}
	return g.Run(ctx)
}

// RunGraph satisfies schedule.Runner. Scheduled runs start with empty state.
func (gs *GraphSet) RunGraph(ctx context.Context, graphName string) error {
	_, err := gs.Run(ctx, graphName, nil)
	return err
}

// Describe returns the topology snapshot of a registered graph.
func (gs *GraphSet) Describe(name string) (*GraphDescription, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	entry, ok := gs.entries[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "graph %q not registered", name)
	}

	steps := make([]StepDescription, len(entry.topology))
	copy(steps, entry.topology)
	return &GraphDescription{
		Name:        name,
		Description: entry.description,
		Steps:       steps,
	}, nil
}

// List returns info for all registered graphs, sorted by name.
func (gs *GraphSet) List() []GraphInfo {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	infos := make([]GraphInfo, 0, len(gs.entries))
	for name, entry := range gs.entries {
		infos = append(infos, GraphInfo{
			Name:        name,
			Description: entry.description,
			StepCount:   len(entry.topology),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Has checks if a graph is registered.
func (gs *GraphSet) Has(name string) bool {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	_, ok := gs.entries[name]
	return ok
}
