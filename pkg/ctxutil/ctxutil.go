// Package ctxutil carries the caller identity and request id through
// request and background-task contexts.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type (
	userIDKey    struct{}
	requestIDKey struct{}
	adminKey     struct{}
)

// WithUserID stores the caller's user id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromCtx returns the caller's user id. A missing or nil id reports false.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromCtx returns the request id, or "".
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithAdmin marks the caller as an administrator.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey{}, true)
}

func IsAdminCtx(ctx context.Context) bool {
	admin, _ := ctx.Value(adminKey{}).(bool)
	return admin
}

// Propagate copies the identity and request id of src onto dst. Background
// tasks use it to act for the request that queued them without inheriting
// its cancellation.
func Propagate(dst, src context.Context) context.Context {
	if id, ok := UserIDFromCtx(src); ok {
		dst = WithUserID(dst, id)
	}
	if IsAdminCtx(src) {
		dst = WithAdmin(dst)
	}
	if id := RequestIDFromCtx(src); id != "" {
		dst = WithRequestID(dst, id)
	}
	return dst
}
