package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const runIDKey ctxKey = "run_id"

// WithRunID stores the batch run ID in the context.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromCtx extracts the batch run ID from the context.
// Returns uuid.Nil if the value is missing or of the wrong type.
func RunIDFromCtx(ctx context.Context) uuid.UUID {
	id, ok := ctx.Value(runIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
