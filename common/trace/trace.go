// Package trace provides turn-correlation IDs and their context propagation.
// Every inbound message and every scheduler firing gets its own trace ID so
// that log lines from the layered safety checks, the store, and the completion
// call can be tied back to a single turn.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// ctxKey is the unexported context key holding the trace ID.
type ctxKey struct{}

// NewID returns a fresh trace ID.
func NewID() string {
	return "t_" + uuid.NewString()
}

// WithID returns a child context carrying the given trace ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" when absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
