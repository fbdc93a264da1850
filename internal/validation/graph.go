package validation

import "github.com/actiongraph/actiongraph/pkg/schema"

// GraphValidator orchestrates the two-stage validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (step names, after refs, action refs, termination)
type GraphValidator struct {
	jsonSchema *SchemaValidator
	actions    ActionLookup
}

// NewGraphValidator creates a GraphValidator.
// lookup may be nil to skip action existence checks.
func NewGraphValidator(lookup ActionLookup) (*GraphValidator, error) {
	sv, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &GraphValidator{
		jsonSchema: sv,
		actions:    lookup,
	}, nil
}

// Validate runs both stages and returns an aggregated result. Structural
// errors short-circuit: the semantic stage is skipped on a malformed
// document.
func (gv *GraphValidator) Validate(def *schema.GraphDefinition) *schema.ValidationResult {
	if def == nil {
		r := &schema.ValidationResult{}
		r.Errorf(schema.StageStructural, "/", "graph definition is nil")
		return r
	}

	result := validateStructural(gv.jsonSchema, def)
	if !result.Valid() {
		return result
	}

	result.Merge(validateSemantic(def, gv.actions))
	return result
}

// ValidateDefinition returns the aggregated result as a single error, nil
// when the definition is valid.
func (gv *GraphValidator) ValidateDefinition(def *schema.GraphDefinition) error {
	return gv.Validate(def).ToError()
}

// validateStructural wraps SchemaValidator.ValidateDefinition, converting
// its error output into ValidationResult.
func validateStructural(v *SchemaValidator, def *schema.GraphDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	err := v.ValidateDefinition(def)
	if err == nil {
		return result
	}

	gErr, ok := err.(*schema.GraphError)
	if !ok {
		result.Errorf(schema.StageStructural, "/", "%s", err.Error())
		return result
	}

	if gErr.Details != nil {
		if violations, ok := gErr.Details["violations"].([]string); ok {
			for _, v := range violations {
				result.Errorf(schema.StageStructural, "/", "%s", v)
			}
			return result
		}
	}
	result.Errorf(schema.StageStructural, "/", "%s", gErr.Message)
	return result
}
