package definition

import (
	"context"

	"github.com/actiongraph/actiongraph/internal/expressions"
	"github.com/actiongraph/actiongraph/internal/validation"
	"github.com/actiongraph/actiongraph/pkg/actions"
	"github.com/actiongraph/actiongraph/pkg/graph"
	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Compiler turns validated graph definitions into runnable graphs. It is
// safe for concurrent use; the expression engines cache compiled programs
// across compilations.
type Compiler struct {
	registry  *actions.Registry
	validator *validation.GraphValidator
	engines   map[string]expressions.Engine
}

// NewCompiler creates a Compiler resolving action names against the given
// registry.
func NewCompiler(registry *actions.Registry) (*Compiler, error) {
	if registry == nil {
		return nil, schema.NewError(schema.ErrCodeConfig, "action registry is nil")
	}

	gv, err := validation.NewGraphValidator(registry)
	if err != nil {
		return nil, err
	}

	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}

	return &Compiler{
		registry:  registry,
		validator: gv,
		engines: map[string]expressions.Engine{
			schema.LangExpr: expressions.NewExprEngine(),
			schema.LangCEL:  cel,
			schema.LangJQ:   expressions.NewGoJQEngine(),
		},
	}, nil
}

// Validate runs the full validation pipeline without compiling.
func (c *Compiler) Validate(def *schema.GraphDefinition) *schema.ValidationResult {
	return c.validator.Validate(def)
}

// Compile validates the definition and builds a Graph bound to the given
// session. Steps attach in declaration order: to the step named in After,
// or to the previously declared step when After is empty. A step marked
// end is additionally wired to the END sentinel.
func (c *Compiler) Compile(def *schema.GraphDefinition, session graph.Session, opts ...graph.Option) (*graph.Graph, error) {
	if err := c.validator.ValidateDefinition(def); err != nil {
		return nil, err
	}

	graphOpts := []graph.Option{
		graph.WithName(def.Name),
		graph.WithFallbackMaxRetries(def.FallbackMaxRetries),
	}
	graphOpts = append(graphOpts, opts...)
	g := graph.New(session, graphOpts...)

	for i := range def.Steps {
		if err := c.attachStep(g, &def.Steps[i]); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (c *Compiler) attachStep(g *graph.Graph, sd *schema.StepDefinition) error {
	acts, err := c.buildActions(sd.Name, sd.Actions)
	if err != nil {
		return err
	}
	fallback, err := c.buildActions(sd.Name, sd.Fallback)
	if err != nil {
		return err
	}

	conds := make([]any, 0, len(sd.Conditions))
	for _, ref := range sd.Conditions {
		cond, err := c.buildCondition(ref)
		if err != nil {
			return wrapStepError(err, sd.Name)
		}
		conds = append(conds, cond)
	}

	step, err := graph.NewStep(sd.Name, graph.StepConfig{
		Actions:            acts,
		Conditions:         conds,
		FallbackActions:    fallback,
		FallbackMaxRetries: sd.FallbackMaxRetries,
	})
	if err != nil {
		return err
	}

	if sd.After != "" {
		err = g.AddEdge(step, sd.After)
	} else {
		err = g.AddEdge(step)
	}
	if err != nil {
		return err
	}

	if sd.End {
		return g.End()
	}
	return nil
}

func (c *Compiler) buildActions(stepName string, refs []schema.ActionRef) ([]any, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	built := make([]any, 0, len(refs))
	for _, ref := range refs {
		factory, err := c.registry.Get(ref.Action)
		if err != nil {
			return nil, wrapStepError(err, stepName)
		}
		action, err := factory.Build(ref.Params)
		if err != nil {
			return nil, wrapStepError(err, stepName)
		}
		built = append(built, action)
	}
	return built, nil
}

// buildCondition wraps an expression in a condition callable. The
// expression sees the run state under the "state" key; compiled programs
// are cached inside the engines, so the first evaluation pays the
// compilation cost.
func (c *Compiler) buildCondition(ref schema.ConditionRef) (any, error) {
	lang := ref.Lang
	if lang == "" {
		lang = schema.LangExpr
	}
	engine, ok := c.engines[lang]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "unknown condition language %q", lang)
	}

	expr := ref.Expr
	return func(ctx context.Context, state *graph.State) (bool, error) {
		out, err := engine.Evaluate(ctx, expr, map[string]any{"state": state.Values()})
		if err != nil {
			return false, err
		}
		return expressions.Truthy(out), nil
	}, nil
}

func wrapStepError(err error, stepName string) error {
	if gErr, ok := err.(*schema.GraphError); ok {
		return gErr.WithStep(stepName)
	}
	return err
}
