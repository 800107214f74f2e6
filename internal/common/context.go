package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyResultID  contextKey = "result_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithResultID tags the context with the ProcessResult being worked on.
func WithResultID(ctx context.Context, resultID string) context.Context {
	return context.WithValue(ctx, ContextKeyResultID, resultID)
}

// ResultIDFromContext extracts the ProcessResult ID from context
func ResultIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyResultID).(string); ok {
		return id
	}
	return ""
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
