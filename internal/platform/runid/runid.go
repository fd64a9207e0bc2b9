package runid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New generates the correlation ID attached to every log line of one run.
func New() string {
	return uuid.NewString()
}

// NewContext returns a context that carries the given run ID.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the run ID stored in ctx, or an empty string.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
