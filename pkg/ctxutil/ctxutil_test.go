package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserIDFromCtx(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name   string
		ctx    context.Context
		want   uuid.UUID
		wantOK bool
	}{
		{"set", WithUserID(context.Background(), id), id, true},
		{"missing", context.Background(), uuid.Nil, false},
		{"nil uuid", WithUserID(context.Background(), uuid.Nil), uuid.Nil, false},
		{"string under a look-alike key", context.WithValue(context.Background(), "user_id", id.String()), uuid.Nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := UserIDFromCtx(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestIDFromCtx(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "req-7", RequestIDFromCtx(WithRequestID(context.Background(), "req-7")))
	assert.Empty(t, RequestIDFromCtx(context.Background()))
}

func TestIsAdminCtx(t *testing.T) {
	t.Parallel()

	assert.False(t, IsAdminCtx(context.Background()))
	assert.True(t, IsAdminCtx(WithAdmin(context.Background())))
	assert.False(t, IsAdminCtx(context.WithValue(context.Background(), "admin", true)))
}

func TestPropagate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	src, cancel := context.WithCancel(WithAdmin(WithRequestID(WithUserID(context.Background(), userID), "req-9")))
	cancel()

	dst := Propagate(context.Background(), src)

	got, ok := UserIDFromCtx(dst)
	assert.True(t, ok)
	assert.Equal(t, userID, got)
	assert.True(t, IsAdminCtx(dst))
	assert.Equal(t, "req-9", RequestIDFromCtx(dst))
	assert.NoError(t, dst.Err(), "cancellation is not inherited")
}

func TestPropagate_EmptySourceKeepsDestination(t *testing.T) {
	t.Parallel()

	dst, cancel := context.WithTimeout(WithRequestID(context.Background(), "task"), time.Minute)
	defer cancel()

	got := Propagate(dst, context.Background())

	assert.Equal(t, "task", RequestIDFromCtx(got))
	_, ok := UserIDFromCtx(got)
	assert.False(t, ok)
	_, hasDeadline := got.Deadline()
	assert.True(t, hasDeadline)
}
