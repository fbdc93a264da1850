package expressions

import "context"

// Engine evaluates expressions used by declarative graph conditions and
// state transforms. Three implementations: Expr (default condition
// language), CEL (sandboxed alternative), GoJQ (state queries).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Truthy converts an expression result into a condition outcome. Booleans
// map directly; nil is false; everything else follows jq-style truthiness
// (only false and null are falsy).
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}
