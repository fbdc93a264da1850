package expressions

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// exprScope is the fixed environment a condition expression runs in. The
// same three scopes CEL exposes: shared-state values, current step metadata,
// run metadata. Declaring the shape up front makes unknown top-level names a
// compile error instead of a silent nil at run time.
type exprScope struct {
	State map[string]any `expr:"state"`
	Step  map[string]any `expr:"step"`
	Run   map[string]any `expr:"run"`
}

// ExprEngine implements the Engine interface using expr-lang/expr. It is the
// default language for declarative step conditions: `state.ready == true`
// reads shared-state key "ready". A missing key inside a scope reads as nil.
// Thread-safe: compiled *vm.Program objects are cached and reused.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates a new Expr expression engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{
		cache: make(map[string]*vm.Program),
	}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate compiles (or retrieves from cache) an Expr expression and runs it
// against the state/step/run scopes found in data. A scope missing from data
// evaluates as an empty map.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expr expression")
	}

	prg, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	out, err := vm.Run(prg, scopeOf(data))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"expr evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	return out, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *ExprEngine) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.Env(exprScope{}))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"expr compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = prg
	return prg, nil
}

// scopeOf assembles the evaluation environment, defaulting absent scopes to
// empty maps so lookups degrade to nil instead of failing.
func scopeOf(data map[string]any) exprScope {
	return exprScope{
		State: scopeMap(data, "state"),
		Step:  scopeMap(data, "step"),
		Run:   scopeMap(data, "run"),
	}
}

func scopeMap(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

var _ Engine = (*ExprEngine)(nil)
