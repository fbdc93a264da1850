package schema

import "fmt"

// ValidationStage identifies which pipeline stage raised an issue: the JSON
// Schema pass over the raw document, or the semantic pass over the decoded
// definition.
type ValidationStage string

const (
	StageStructural ValidationStage = "structural"
	StageSemantic   ValidationStage = "semantic"
)

// ValidationSeverity indicates whether an issue blocks compilation.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one problem found in a graph definition. Path points
// into the definition document ("steps[2].after"); "/" is the document root.
type ValidationIssue struct {
	Stage    ValidationStage    `json:"stage"`
	Severity ValidationSeverity `json:"severity"`
	Path     string             `json:"path"`
	Message  string             `json:"message"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// ValidationResult collects every issue found in one definition, errors and
// warnings interleaved in discovery order.
type ValidationResult struct {
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// Valid reports whether the definition can be compiled. Warnings do not
// block compilation.
func (r *ValidationResult) Valid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errorf records an error-severity issue at path.
func (r *ValidationResult) Errorf(stage ValidationStage, path, format string, args ...any) {
	r.add(stage, SeverityError, path, format, args...)
}

// Warnf records a warning-severity issue at path.
func (r *ValidationResult) Warnf(stage ValidationStage, path, format string, args ...any) {
	r.add(stage, SeverityWarning, path, format, args...)
}

func (r *ValidationResult) add(stage ValidationStage, sev ValidationSeverity, path, format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{
		Stage:    stage,
		Severity: sev,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errors returns the error-severity issues in discovery order.
func (r *ValidationResult) Errors() []ValidationIssue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues in discovery order.
func (r *ValidationResult) Warnings() []ValidationIssue {
	return r.filter(SeverityWarning)
}

func (r *ValidationResult) filter(sev ValidationSeverity) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Merge appends another result's issues to this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// ToError folds the result into a single VALIDATION_ERROR carrying each
// error as a "path: message" line, or nil when the definition is valid.
func (r *ValidationResult) ToError() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}

	msg := fmt.Sprintf("invalid graph definition: %s", errs[0])
	if len(errs) > 1 {
		msg = fmt.Sprintf("invalid graph definition: %d errors, first at %s", len(errs), errs[0].Path)
	}

	lines := make([]string, len(errs))
	for i, issue := range errs {
		lines[i] = issue.String()
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"issues":        lines,
			"warning_count": len(r.Warnings()),
		})
}
