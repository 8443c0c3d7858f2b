package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	apperrors "salespulse/internal/errors"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// ContextWithTraceID creates a new context with a generated trace ID
func ContextWithTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, GenerateTraceID())
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return ContextWithTraceID(ctx)
	}
	return ctx
}

// WithError returns a logger carrying err and, for typed pipeline errors,
// its error type.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	if errType := apperrors.TypeOf(err); errType != "" {
		return logger.With(slog.String("error", err.Error()), slog.String("error_type", string(errType)))
	}
	return logger.With(slog.String("error", err.Error()))
}
