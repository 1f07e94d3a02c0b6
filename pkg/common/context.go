package common

import (
	"context"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyUserID    ContextKey = "user_id"
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyReadOnly  ContextKey = "read_only"
)

// WithUserID adds user ID to context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	return userID, ok
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithReadOnly marks the request as a public read-only view.
// Mutation handlers refuse to run under a read-only context.
func WithReadOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextKeyReadOnly, true)
}

// IsReadOnly reports whether the request context is read-only
func IsReadOnly(ctx context.Context) bool {
	readOnly, ok := ctx.Value(ContextKeyReadOnly).(bool)
	return ok && readOnly
}
