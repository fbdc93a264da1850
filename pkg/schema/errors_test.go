package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphError_Message(t *testing.T) {
	err := NewError(ErrCodeActionFailed, "click failed")
	assert.Equal(t, "[ACTION_FAILED] click failed", err.Error())

	err = err.WithStep("login")
	assert.Equal(t, "[ACTION_FAILED] step login: click failed", err.Error())
}

func TestGraphError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewErrorf(ErrCodeActionFailed, "wrapped: %s", cause.Error()).WithCause(cause)

	assert.True(t, errors.Is(err, cause))

	wrapped := fmt.Errorf("outer: %w", err)
	var gErr *GraphError
	require.True(t, errors.As(wrapped, &gErr))
	assert.Equal(t, ErrCodeActionFailed, gErr.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeConfig, CodeOf(NewError(ErrCodeConfig, "x")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestPredicates(t *testing.T) {
	exhausted := NewError(ErrCodeRetryExhausted, "done trying").WithStep("a").WithRetries(3)
	assert.True(t, IsRetryExhausted(exhausted))
	assert.False(t, IsConfig(exhausted))
	assert.Equal(t, 3, exhausted.Retries)

	config := NewError(ErrCodeConfig, "bad wiring")
	assert.True(t, IsConfig(config))
	assert.False(t, IsRetryExhausted(config))
}

func TestValidationResult(t *testing.T) {
	var r ValidationResult
	assert.True(t, r.Valid())
	assert.NoError(t, r.ToError())

	r.Warnf(StageSemantic, "steps[0].fallback_max_retries", "budget %d has no effect", 3)
	assert.True(t, r.Valid())
	assert.Empty(t, r.Errors())

	r.Errorf(StageSemantic, "steps[1].name", "duplicate step name %q", "open")
	assert.False(t, r.Valid())
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, `steps[1].name: duplicate step name "open"`, r.Errors()[0].String())

	err := r.ToError()
	require.Error(t, err)
	var gErr *GraphError
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, ErrCodeValidation, gErr.Code)
	assert.Equal(t, []string{`steps[1].name: duplicate step name "open"`}, gErr.Details["issues"])
	assert.Equal(t, 1, gErr.Details["warning_count"])
}

func TestValidationResult_Merge(t *testing.T) {
	structural := &ValidationResult{}
	structural.Errorf(StageStructural, "/", "steps is required")

	semantic := &ValidationResult{}
	semantic.Warnf(StageSemantic, "steps[0]", "minor issue")

	structural.Merge(semantic)
	structural.Merge(nil)

	assert.Len(t, structural.Issues, 2)
	assert.Len(t, structural.Errors(), 1)
	assert.Len(t, structural.Warnings(), 1)
}
