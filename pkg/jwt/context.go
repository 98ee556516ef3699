package jwt

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{ name string }

var callerContextKey = &contextKey{name: "jwt_caller_id"}

// SetCallerID stores the authenticated caller identity in the context.
func SetCallerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, callerContextKey, id)
}

// CallerID returns the authenticated caller identity from the context.
func CallerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callerContextKey).(uuid.UUID)
	return id, ok
}
