// Package validation checks graph definitions before they are compiled
// into runnable graphs. Structural validation uses JSON Schema Draft
// 2020-12; semantic validation covers the rules the schema cannot express.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// graphSchemaJSON is the JSON Schema for GraphDefinition validation.
// Embedded as a constant to avoid filesystem dependencies.
const graphSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://actiongraph.dev/schemas/graph.json",
  "type": "object",
  "required": ["steps"],
  "properties": {
    "name": { "type": "string" },
    "fallback_max_retries": {
      "type": "integer",
      "minimum": 0
    },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/step" }
    },
    "metadata": {
      "type": "object"
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {
          "type": "string",
          "minLength": 1
        },
        "after": { "type": "string" },
        "actions": {
          "type": "array",
          "items": { "$ref": "#/$defs/action" }
        },
        "conditions": {
          "type": "array",
          "items": { "$ref": "#/$defs/condition" }
        },
        "fallback": {
          "type": "array",
          "items": { "$ref": "#/$defs/action" }
        },
        "fallback_max_retries": {
          "type": "integer",
          "minimum": 0
        },
        "end": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "action": {
      "type": "object",
      "required": ["action"],
      "properties": {
        "action": {
          "type": "string",
          "minLength": 1
        },
        "params": {
          "type": "object"
        }
      },
      "additionalProperties": false
    },
    "condition": {
      "type": "object",
      "required": ["expr"],
      "properties": {
        "lang": {
          "type": "string",
          "enum": ["expr", "cel", "jq"]
        },
        "expr": {
          "type": "string",
          "minLength": 1
        }
      },
      "additionalProperties": false
    }
  }
}`

// SchemaValidator validates graph definitions against the embedded JSON
// Schema. It is safe for concurrent use.
type SchemaValidator struct {
	graphSchema *jsonschema.Schema
}

// NewSchemaValidator creates a SchemaValidator with the graph schema
// pre-compiled.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(graphSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal graph schema: %w", err)
	}
	if err := c.AddResource("https://actiongraph.dev/schemas/graph.json", doc); err != nil {
		return nil, fmt.Errorf("add graph schema resource: %w", err)
	}

	compiled, err := c.Compile("https://actiongraph.dev/schemas/graph.json")
	if err != nil {
		return nil, fmt.Errorf("compile graph schema: %w", err)
	}

	return &SchemaValidator{graphSchema: compiled}, nil
}

// ValidateDefinition validates a GraphDefinition against the graph JSON
// Schema.
func (v *SchemaValidator) ValidateDefinition(def *schema.GraphDefinition) error {
	if def == nil {
		return schema.NewError(schema.ErrCodeValidation, "graph definition is nil")
	}

	doc, err := toJSONValue(def)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize graph definition").WithCause(err)
	}

	if err := v.graphSchema.Validate(doc); err != nil {
		return toGraphError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toGraphError converts a jsonschema.ValidationError into a GraphError with
// instance locations attached to each violation.
func toGraphError(err error) *schema.GraphError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	msg := violations[0]
	if len(violations) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(violations))
	}
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
