package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	stepNameKey
	graphNameKey
)

// WithRunID returns a context with the run ID set.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithStepName returns a context with the current step name set.
func WithStepName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, stepNameKey, name)
}

// WithGraphName returns a context with the graph name set.
func WithGraphName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, graphNameKey, name)
}

// RunID extracts the run ID from the context, or "" if absent.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// StepName extracts the current step name from the context, or "" if absent.
func StepName(ctx context.Context) string {
	v, _ := ctx.Value(stepNameKey).(string)
	return v
}

// GraphName extracts the graph name from the context, or "" if absent.
func GraphName(ctx context.Context) string {
	v, _ := ctx.Value(graphNameKey).(string)
	return v
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := RunID(ctx); id != "" {
		logger = logger.With(slog.String("run_id", id))
	}
	if name := StepName(ctx); name != "" {
		logger = logger.With(slog.String("step", name))
	}
	if name := GraphName(ctx); name != "" {
		logger = logger.With(slog.String("graph", name))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := RunID(ctx); v != "" {
		r.AddAttrs(slog.String("run_id", v))
	}
	if v := StepName(ctx); v != "" {
		r.AddAttrs(slog.String("step", v))
	}
	if v := GraphName(ctx); v != "" {
		r.AddAttrs(slog.String("graph", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
