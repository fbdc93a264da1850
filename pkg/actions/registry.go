package actions

import (
	"sort"
	"sync"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Factory builds a step action callable from the parameter map of a graph
// definition. The returned value must be one of the callable shapes the
// graph builder accepts.
type Factory interface {
	Name() string
	Description() string
	Build(params map[string]any) (any, error)
}

// FactoryInfo is the listing entry for a registered factory.
type FactoryInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry is a thread-safe collection of named action factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry. Returns error on duplicate name.
func (r *Registry) Register(f Factory) error {
	if f == nil {
		return schema.NewError(schema.ErrCodeValidation, "factory is nil")
	}
	name := f.Name()
	if name == "" {
		return schema.NewError(schema.ErrCodeValidation, "factory name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "action %q already registered", name)
	}

	r.factories[name] = f
	return nil
}

// RegisterFunc registers a factory built from plain values.
func (r *Registry) RegisterFunc(name, description string, build func(params map[string]any) (any, error)) error {
	return r.Register(&funcFactory{name: name, description: description, build: build})
}

// Get retrieves a factory by name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "action %q not registered", name)
	}
	return f, nil
}

// Has checks if a factory is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Count returns the number of registered factories.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// List returns info for all registered factories, sorted by name.
func (r *Registry) List() []FactoryInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]FactoryInfo, 0, len(r.factories))
	for _, f := range r.factories {
		infos = append(infos, FactoryInfo{
			Name:        f.Name(),
			Description: f.Description(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

type funcFactory struct {
	name        string
	description string
	build       func(params map[string]any) (any, error)
}

func (f *funcFactory) Name() string        { return f.name }
func (f *funcFactory) Description() string { return f.description }

func (f *funcFactory) Build(params map[string]any) (any, error) {
	return f.build(params)
}
