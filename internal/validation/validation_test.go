package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

type fakeLookup map[string]bool

func (f fakeLookup) Has(name string) bool { return f[name] }

var knownActions = fakeLookup{
	"navigate":  true,
	"click":     true,
	"save_text": true,
}

func intPtr(i int) *int { return &i }

func validDefinition() *schema.GraphDefinition {
	return &schema.GraphDefinition{
		Name: "checkout",
		Steps: []schema.StepDefinition{
			{
				Name:    "open",
				Actions: []schema.ActionRef{{Action: "navigate", Params: map[string]any{"url": "https://shop.test"}}},
			},
			{
				Name:       "buy",
				Actions:    []schema.ActionRef{{Action: "click", Params: map[string]any{"id": "buy"}}},
				Conditions: []schema.ConditionRef{{Lang: "expr", Expr: `state.ready == true`}},
				Fallback:   []schema.ActionRef{{Action: "click", Params: map[string]any{"id": "retry"}}},
				End:        true,
			},
		},
	}
}

func newValidator(t *testing.T) *GraphValidator {
	t.Helper()
	gv, err := NewGraphValidator(knownActions)
	require.NoError(t, err)
	return gv
}

func TestValidate_ValidDefinition(t *testing.T) {
	gv := newValidator(t)

	result := gv.Validate(validDefinition())

	assert.True(t, result.Valid())
	assert.Empty(t, result.Issues)
	assert.NoError(t, gv.ValidateDefinition(validDefinition()))
}

func TestValidate_NilDefinition(t *testing.T) {
	gv := newValidator(t)

	result := gv.Validate(nil)

	assert.False(t, result.Valid())
}

func TestValidate_StructuralErrors(t *testing.T) {
	gv := newValidator(t)

	tests := []struct {
		name   string
		mutate func(def *schema.GraphDefinition)
	}{
		{"no steps", func(def *schema.GraphDefinition) { def.Steps = nil }},
		{"empty step name", func(def *schema.GraphDefinition) { def.Steps[0].Name = "" }},
		{"unknown condition language", func(def *schema.GraphDefinition) {
			def.Steps[1].Conditions[0].Lang = "lua"
		}},
		{"empty expression", func(def *schema.GraphDefinition) {
			def.Steps[1].Conditions[0].Expr = ""
		}},
		{"empty action name", func(def *schema.GraphDefinition) {
			def.Steps[0].Actions[0].Action = ""
		}},
		{"negative graph retry budget", func(def *schema.GraphDefinition) {
			def.FallbackMaxRetries = -1
		}},
		{"negative step retry budget", func(def *schema.GraphDefinition) {
			def.Steps[1].FallbackMaxRetries = intPtr(-2)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)

			result := gv.Validate(def)

			assert.False(t, result.Valid())
		})
	}
}

func TestValidate_SemanticErrors(t *testing.T) {
	gv := newValidator(t)

	tests := []struct {
		name     string
		mutate   func(def *schema.GraphDefinition)
		wantPath string
	}{
		{"duplicate step name", func(def *schema.GraphDefinition) {
			def.Steps[1].Name = "open"
		}, "steps[1].name"},
		{"reserved START", func(def *schema.GraphDefinition) {
			def.Steps[0].Name = "START"
		}, "steps[0].name"},
		{"reserved END", func(def *schema.GraphDefinition) {
			def.Steps[0].Name = "END"
		}, "steps[0].name"},
		{"after undeclared step", func(def *schema.GraphDefinition) {
			def.Steps[0].After = "buy"
		}, "steps[0].after"},
		{"after END", func(def *schema.GraphDefinition) {
			def.Steps[1].After = "END"
		}, "steps[1].after"},
		{"unregistered action", func(def *schema.GraphDefinition) {
			def.Steps[0].Actions[0].Action = "teleport"
		}, "steps[0].actions[0].action"},
		{"unregistered fallback action", func(def *schema.GraphDefinition) {
			def.Steps[1].Fallback[0].Action = "teleport"
		}, "steps[1].fallback[0].action"},
		{"no end step", func(def *schema.GraphDefinition) {
			def.Steps[1].End = false
		}, "steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)

			result := gv.Validate(def)

			require.False(t, result.Valid())
			errs := result.Errors()
			paths := make([]string, 0, len(errs))
			for _, issue := range errs {
				paths = append(paths, issue.Path)
			}
			assert.Contains(t, paths, tt.wantPath)
		})
	}
}

func TestValidate_AfterStartIsAllowed(t *testing.T) {
	gv := newValidator(t)
	def := validDefinition()
	def.Steps[1].After = "START"

	result := gv.Validate(def)

	assert.True(t, result.Valid())
}

func TestValidate_Warnings(t *testing.T) {
	gv := newValidator(t)

	t.Run("high retry budget", func(t *testing.T) {
		def := validDefinition()
		def.Steps[1].FallbackMaxRetries = intPtr(50)

		result := gv.Validate(def)

		assert.True(t, result.Valid())
		warnings := result.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "steps[1].fallback_max_retries", warnings[0].Path)
		assert.Equal(t, schema.StageSemantic, warnings[0].Stage)
	})

	t.Run("budget without fallback actions", func(t *testing.T) {
		def := validDefinition()
		def.Steps[0].FallbackMaxRetries = intPtr(2)

		result := gv.Validate(def)

		assert.True(t, result.Valid())
		warnings := result.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "steps[0].fallback_max_retries", warnings[0].Path)
	})
}

func TestValidate_NilLookupSkipsActionChecks(t *testing.T) {
	gv, err := NewGraphValidator(nil)
	require.NoError(t, err)

	def := validDefinition()
	def.Steps[0].Actions[0].Action = "teleport"

	result := gv.Validate(def)

	assert.True(t, result.Valid())
}
