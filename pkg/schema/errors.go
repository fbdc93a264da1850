package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeConfig           = "CONFIG_ERROR"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeActionFailed     = "ACTION_FAILED"
	ErrCodeExecution        = "EXECUTION_ERROR"
	ErrCodeConditionFailed  = "CONDITION_FAILED"
	ErrCodeRetryExhausted   = "RETRY_EXHAUSTED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeElementNotFound  = "ELEMENT_NOT_FOUND"
	ErrCodeElementNotUnique = "ELEMENT_NOT_UNIQUE"
)

// GraphError is the structured error type for all actiongraph operations.
type GraphError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Step    string         `json:"step,omitempty"`
	Retries int            `json:"retries,omitempty"`
	Cause   error          `json:"-"`
}

func (e *GraphError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GraphError) Unwrap() error {
	return e.Cause
}

// NewError creates a new GraphError.
func NewError(code, message string) *GraphError {
	return &GraphError{Code: code, Message: message}
}

// NewErrorf creates a new GraphError with a formatted message.
func NewErrorf(code, format string, args ...any) *GraphError {
	return &GraphError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a step name to the error.
func (e *GraphError) WithStep(step string) *GraphError {
	e.Step = step
	return e
}

// WithRetries attaches the retry count observed when the error was raised.
func (e *GraphError) WithRetries(retries int) *GraphError {
	e.Retries = retries
	return e
}

// WithCause attaches an underlying cause.
func (e *GraphError) WithCause(err error) *GraphError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *GraphError) WithDetails(details map[string]any) *GraphError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or "" if err is not a GraphError.
func CodeOf(err error) string {
	var gErr *GraphError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return ""
}

// IsConfig reports whether err is a build-time configuration error.
func IsConfig(err error) bool {
	return CodeOf(err) == ErrCodeConfig
}

// IsRetryExhausted reports whether err is a fallback retry exhaustion,
// the terminal failure raised when no successor ever became eligible.
func IsRetryExhausted(err error) bool {
	return CodeOf(err) == ErrCodeRetryExhausted
}
