// Package correlation provides context propagation for request/cycle
// correlation IDs, used to tie together log lines and metrics emitted
// during a single dispatch cycle or feed fetch run.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the context key for storing correlation IDs.
const RequestIDKey contextKey = "request_id"

// FromContext retrieves the correlation ID from the context.
// Returns an empty string if no ID is found.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID adds a correlation ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// New generates a fresh correlation ID and attaches it to the context.
// Used at the start of a dispatch cycle or scheduled feed fetch run.
func New(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return WithRequestID(ctx, id), id
}
