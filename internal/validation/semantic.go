package validation

import (
	"fmt"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// ActionLookup answers whether a named action factory is available.
// Satisfied by actions.Registry.
type ActionLookup interface {
	Has(name string) bool
}

// reserved sentinel names that step definitions may not use.
const (
	startName = "START"
	endName   = "END"
)

// validateSemantic performs semantic analysis on a graph definition.
// Checks: unique step names, reserved names, after refs point at already
// declared steps, action names registered, at least one step ends the
// graph.
func validateSemantic(def *schema.GraphDefinition, lookup ActionLookup) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	declared := make(map[string]bool, len(def.Steps))
	hasEnd := false

	for i := range def.Steps {
		step := &def.Steps[i]
		path := fmt.Sprintf("steps[%d]", i)

		switch {
		case step.Name == startName || step.Name == endName:
			result.Errorf(schema.StageSemantic, path+".name",
				"%q is a reserved step name", step.Name)
		case declared[step.Name]:
			result.Errorf(schema.StageSemantic, path+".name",
				"duplicate step name %q", step.Name)
		}

		// After must name a step declared earlier in the list, mirroring
		// the builder where a predecessor has to exist before attachment.
		if step.After != "" && step.After != startName {
			if step.After == endName {
				result.Errorf(schema.StageSemantic, path+".after",
					"END cannot have outgoing edges")
			} else if !declared[step.After] {
				result.Errorf(schema.StageSemantic, path+".after",
					"references undeclared step %q", step.After)
			}
		}

		validateActionRefs(step.Actions, path+".actions", lookup, result)
		validateActionRefs(step.Fallback, path+".fallback", lookup, result)

		if step.FallbackMaxRetries != nil && *step.FallbackMaxRetries > 10 {
			result.Warnf(schema.StageSemantic, path+".fallback_max_retries",
				"high retry count (%d) may stall runs for a long time", *step.FallbackMaxRetries)
		}
		if len(step.Fallback) == 0 && step.FallbackMaxRetries != nil {
			result.Warnf(schema.StageSemantic, path+".fallback_max_retries",
				"retry budget has no effect without fallback actions")
		}

		declared[step.Name] = true
		if step.End {
			hasEnd = true
		}
	}

	if !hasEnd {
		result.Errorf(schema.StageSemantic, "steps",
			"no step is marked end; runs could never terminate")
	}

	return result
}

func validateActionRefs(refs []schema.ActionRef, path string, lookup ActionLookup, result *schema.ValidationResult) {
	if lookup == nil {
		return
	}
	for j, ref := range refs {
		if !lookup.Has(ref.Action) {
			result.Errorf(schema.StageSemantic, fmt.Sprintf("%s[%d].action", path, j),
				"action %q not registered", ref.Action)
		}
	}
}
