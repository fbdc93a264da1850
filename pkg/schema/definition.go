package schema

// GraphDefinition is the serializable graph format, loadable from JSON or
// YAML. Steps are declared in attachment order: each step is wired to the
// step named in After, or to the previously declared step when After is
// empty (the builder cursor), mirroring the programmatic builder.
type GraphDefinition struct {
	Name               string           `json:"name,omitempty" yaml:"name,omitempty"`
	FallbackMaxRetries int              `json:"fallback_max_retries,omitempty" yaml:"fallback_max_retries,omitempty"`
	Steps              []StepDefinition `json:"steps" yaml:"steps"`
	Metadata           map[string]any   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// StepDefinition describes a single step in a graph definition.
type StepDefinition struct {
	Name               string         `json:"name" yaml:"name"`
	After              string         `json:"after,omitempty" yaml:"after,omitempty"`
	Actions            []ActionRef    `json:"actions,omitempty" yaml:"actions,omitempty"`
	Conditions         []ConditionRef `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Fallback           []ActionRef    `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	FallbackMaxRetries *int           `json:"fallback_max_retries,omitempty" yaml:"fallback_max_retries,omitempty"`
	End                bool           `json:"end,omitempty" yaml:"end,omitempty"`
}

// ActionRef names a registered action factory with its parameters.
type ActionRef struct {
	Action string         `json:"action" yaml:"action"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// ConditionRef is an expression-based condition in one of the supported
// expression languages.
type ConditionRef struct {
	Lang string `json:"lang,omitempty" yaml:"lang,omitempty"` // expr | cel | jq (default: expr)
	Expr string `json:"expr" yaml:"expr"`
}

// Expression languages accepted in ConditionRef.Lang.
const (
	LangExpr = "expr"
	LangCEL  = "cel"
	LangJQ   = "jq"
)

// RunStatus represents the terminal state of a graph run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)
