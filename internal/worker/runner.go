// Package worker runs background tasks in FIFO order per key, retrying
// transient failures.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// ErrClosed is returned by Submit after Shutdown has been called.
var ErrClosed = errors.New("worker: runner closed")

// ErrQueueFull is returned by Submit when a key already has MaxPending tasks.
var ErrQueueFull = errors.New("worker: queue full")

// Task is a unit of background work. Tasks sharing a Key never overlap and run
// in submission order.
type Task struct {
	Key       uuid.UUID
	Operation string
	Run       func(ctx context.Context) error
}

// FailureHandler is called once for a task that failed permanently or ran out
// of retries.
type FailureHandler func(ctx context.Context, task Task, err error)

// Config controls timeouts and retries.
type Config struct {
	TaskTimeout     time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxPending bounds the queue of a single key; zero means unbounded.
	MaxPending int
}

// Runner executes tasks on one goroutine per busy key.
type Runner struct {
	cfg       Config
	onFailure FailureHandler
	log       *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	queues map[uuid.UUID][]Task
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a Runner. onFailure may be nil.
func NewRunner(log *slog.Logger, cfg Config, onFailure FailureHandler) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:       cfg,
		onFailure: onFailure,
		log:       log.With("service", "worker"),
		baseCtx:   ctx,
		cancel:    cancel,
		queues:    make(map[uuid.UUID][]Task),
	}
}

// SetFailureHandler replaces the failure handler.
func (r *Runner) SetFailureHandler(h FailureHandler) {
	r.mu.Lock()
	r.onFailure = h
	r.mu.Unlock()
}

// Submit enqueues t behind any pending task with the same key.
func (r *Runner) Submit(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	pending, busy := r.queues[t.Key]
	if r.cfg.MaxPending > 0 && len(pending) >= r.cfg.MaxPending {
		return ErrQueueFull
	}
	r.queues[t.Key] = append(pending, t)
	if !busy {
		r.wg.Add(1)
		go r.drain(t.Key)
	}
	return nil
}

// Pending returns the number of queued or running tasks for key.
func (r *Runner) Pending(key uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues[key])
}

// Backlog returns the number of queued or running tasks across all keys.
func (r *Runner) Backlog() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, q := range r.queues {
		n += len(q)
	}
	return n
}

// Draining reports whether Shutdown has been called.
func (r *Runner) Draining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Wait blocks until every queue is empty.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for queued ones to finish. When ctx
// expires first, running tasks are cancelled.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// drain runs the tasks of key until its queue is empty. The head of the queue
// stays in place while it runs so that Submit sees the key as busy.
func (r *Runner) drain(key uuid.UUID) {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		pending := r.queues[key]
		if len(pending) == 0 {
			delete(r.queues, key)
			r.mu.Unlock()
			return
		}
		t := pending[0]
		r.mu.Unlock()

		r.execute(t)

		r.mu.Lock()
		r.queues[key] = r.queues[key][1:]
		r.mu.Unlock()
	}
}

func (r *Runner) execute(t Task) {
	attempts := 0
	op := func() error {
		attempts++
		err := r.runOnce(t)
		if err == nil {
			return nil
		}
		if domain.IsRetryable(err) {
			r.log.WarnContext(r.baseCtx, "task attempt failed",
				slog.String("key", t.Key.String()),
				slog.String("operation", t.Operation),
				slog.Int("attempt", attempts),
				slog.String("error", err.Error()),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, r.backOff())
	if err == nil {
		return
	}

	r.log.ErrorContext(r.baseCtx, "task failed",
		slog.String("key", t.Key.String()),
		slog.String("operation", t.Operation),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)

	r.mu.Lock()
	h := r.onFailure
	r.mu.Unlock()
	if h == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.baseCtx), r.timeout())
	defer cancel()
	h(ctx, t, err)
}

func (r *Runner) runOnce(t Task) (err error) {
	ctx, cancel := context.WithTimeout(r.baseCtx, r.timeout())
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v: %w", t.Operation, p, domain.ErrInternal)
		}
	}()

	return t.Run(ctx)
}

func (r *Runner) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		b.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		b.MaxInterval = r.cfg.MaxInterval
	}
	b.MaxElapsedTime = 0
	retries := r.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), r.baseCtx)
}

func (r *Runner) timeout() time.Duration {
	if r.cfg.TaskTimeout > 0 {
		return r.cfg.TaskTimeout
	}
	return time.Minute
}
