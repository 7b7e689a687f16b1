package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

func testConfig() Config {
	return Config{
		TaskTimeout:     time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRunner_PerKeyOrder(t *testing.T) {
	t.Parallel()

	r := NewRunner(slog.Default(), testConfig(), nil)
	key := uuid.New()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		require.NoError(t, r.Submit(Task{Key: key, Operation: "append", Run: func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}}))
	}
	r.Wait()

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, r.Pending(key))
}

func TestRunner_SameKeyNeverOverlaps(t *testing.T) {
	t.Parallel()

	r := NewRunner(slog.Default(), testConfig(), nil)
	key := uuid.New()

	var running, maxRunning atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, r.Submit(Task{Key: key, Run: func(ctx context.Context) error {
			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		}}))
	}
	r.Wait()

	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestRunner_DifferentKeysRunConcurrently(t *testing.T) {
	t.Parallel()

	r := NewRunner(slog.Default(), testConfig(), nil)
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		require.NoError(t, r.Submit(Task{Key: uuid.New(), Run: func(ctx context.Context) error {
			started <- struct{}{}
			<-release
			return nil
		}}))
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("tasks with different keys did not start concurrently")
		}
	}
	close(release)
	r.Wait()
}

func TestRunner_RetriesUnavailable(t *testing.T) {
	t.Parallel()

	var failures atomic.Int32
	r := NewRunner(slog.Default(), testConfig(), func(ctx context.Context, task Task, err error) {
		failures.Add(1)
	})

	var attempts atomic.Int32
	require.NoError(t, r.Submit(Task{Key: uuid.New(), Run: func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return fmt.Errorf("list rows: %w", domain.ErrServiceUnavailable)
		}
		return nil
	}}))
	r.Wait()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(0), failures.Load())
}

func TestRunner_ExhaustedRetriesReportFailure(t *testing.T) {
	t.Parallel()

	var got error
	var gotTask Task
	r := NewRunner(slog.Default(), testConfig(), func(ctx context.Context, task Task, err error) {
		gotTask, got = task, err
	})

	key := uuid.New()
	var attempts atomic.Int32
	require.NoError(t, r.Submit(Task{Key: key, Operation: "commit", Run: func(ctx context.Context) error {
		attempts.Add(1)
		return domain.ErrServiceUnavailable
	}}))
	r.Wait()

	assert.Equal(t, int32(4), attempts.Load(), "one attempt plus three retries")
	assert.ErrorIs(t, got, domain.ErrServiceUnavailable)
	assert.Equal(t, key, gotTask.Key)
	assert.Equal(t, "commit", gotTask.Operation)
}

func TestRunner_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var got error
	r := NewRunner(slog.Default(), testConfig(), func(ctx context.Context, task Task, err error) { got = err })

	var attempts atomic.Int32
	require.NoError(t, r.Submit(Task{Key: uuid.New(), Run: func(ctx context.Context) error {
		attempts.Add(1)
		return boom
	}}))
	r.Wait()

	assert.Equal(t, int32(1), attempts.Load())
	assert.ErrorIs(t, got, boom)
}

func TestRunner_PanicBecomesFailure(t *testing.T) {
	t.Parallel()

	var got error
	r := NewRunner(slog.Default(), testConfig(), func(ctx context.Context, task Task, err error) { got = err })

	require.NoError(t, r.Submit(Task{Key: uuid.New(), Operation: "submit", Run: func(ctx context.Context) error {
		panic("nil map")
	}}))
	r.Wait()

	assert.ErrorIs(t, got, domain.ErrInternal)
}

func TestRunner_FailureDoesNotBlockQueue(t *testing.T) {
	t.Parallel()

	r := NewRunner(slog.Default(), testConfig(), func(ctx context.Context, task Task, err error) {})
	key := uuid.New()

	var ran atomic.Bool
	require.NoError(t, r.Submit(Task{Key: key, Run: func(ctx context.Context) error { return errors.New("x") }}))
	require.NoError(t, r.Submit(Task{Key: key, Run: func(ctx context.Context) error { ran.Store(true); return nil }}))
	r.Wait()

	assert.True(t, ran.Load())
}

func TestRunner_Shutdown(t *testing.T) {
	t.Parallel()

	r := NewRunner(slog.Default(), testConfig(), nil)
	var ran atomic.Bool
	require.NoError(t, r.Submit(Task{Key: uuid.New(), Run: func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		ran.Store(true)
		return nil
	}}))

	assert.False(t, r.Draining())
	require.NoError(t, r.Shutdown(context.Background()))
	assert.True(t, r.Draining())
	assert.True(t, ran.Load(), "queued task drained before shutdown returns")
	assert.ErrorIs(t, r.Submit(Task{Key: uuid.New(), Run: func(ctx context.Context) error { return nil }}), ErrClosed)
}

func TestRunner_ShutdownDeadlineCancelsTasks(t *testing.T) {
	t.Parallel()

	r := NewRunner(slog.Default(), testConfig(), nil)
	require.NoError(t, r.Submit(Task{Key: uuid.New(), Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Shutdown(ctx), context.DeadlineExceeded)
}

func TestRunner_MaxPending(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxPending = 2
	r := NewRunner(slog.Default(), cfg, nil)
	key := uuid.New()

	release := make(chan struct{})
	block := func(ctx context.Context) error {
		<-release
		return nil
	}
	require.NoError(t, r.Submit(Task{Key: key, Run: block}))
	require.NoError(t, r.Submit(Task{Key: key, Run: block}))
	assert.ErrorIs(t, r.Submit(Task{Key: key, Run: block}), ErrQueueFull)
	assert.Equal(t, 2, r.Pending(key))
	require.NoError(t, r.Submit(Task{Key: uuid.New(), Run: func(ctx context.Context) error { return nil }}))

	close(release)
	r.Wait()
	assert.Equal(t, 0, r.Backlog())
	require.NoError(t, r.Submit(Task{Key: key, Run: block}))
	r.Wait()
}
