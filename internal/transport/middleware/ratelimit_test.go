package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

// fakeClock drives the limiter without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T) (*RateLimiter, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(time.Hour)
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func limited(rl *RateLimiter, perMinute int) func(addr string, userID uuid.UUID) *httptest.ResponseRecorder {
	handler := rl.Limit(perMinute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	return func(addr string, userID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/categories/x/submissions", nil)
		req.RemoteAddr = addr
		if userID != uuid.Nil {
			req = req.WithContext(ctxutil.WithUserID(req.Context(), userID))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl, _ := newTestLimiter(t)
	send := limited(rl, 5)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusAccepted, send("10.0.0.1:4000", uuid.Nil).Code, "request %d", i)
	}

	rec := send("10.0.0.1:4000", uuid.Nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "12", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, clock := newTestLimiter(t)
	send := limited(rl, 60)

	for i := 0; i < 60; i++ {
		send("10.0.0.2:4000", uuid.Nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:4000", uuid.Nil).Code)

	clock.advance(time.Second)
	assert.Equal(t, http.StatusAccepted, send("10.0.0.2:4000", uuid.Nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:4000", uuid.Nil).Code)
}

func TestRateLimiter_DeniedRequestsDoNotDrainBucket(t *testing.T) {
	rl, clock := newTestLimiter(t)
	send := limited(rl, 60)

	for i := 0; i < 60; i++ {
		send("10.0.0.3:4000", uuid.Nil)
	}
	for i := 0; i < 10; i++ {
		send("10.0.0.3:4000", uuid.Nil)
	}

	clock.advance(time.Second)
	assert.Equal(t, http.StatusAccepted, send("10.0.0.3:4000", uuid.Nil).Code)
}

func TestRateLimiter_CallerKeys(t *testing.T) {
	rl, _ := newTestLimiter(t)
	send := limited(rl, 1)
	user := uuid.New()

	assert.Equal(t, http.StatusAccepted, send("10.0.0.4:1", uuid.Nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.4:2", uuid.Nil).Code, "same host, another port")
	assert.Equal(t, http.StatusAccepted, send("10.0.0.5:1", uuid.Nil).Code, "another host")

	assert.Equal(t, http.StatusAccepted, send("10.0.0.4:3", user).Code, "users are keyed apart from hosts")
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.6:1", user).Code, "same user from another host")
}

func TestRateLimiter_SweepDropsIdleCallers(t *testing.T) {
	rl, clock := newTestLimiter(t)
	send := limited(rl, 1)

	send("10.0.0.7:1", uuid.Nil)
	clock.advance(idleAfter / 2)
	send("10.0.0.8:1", uuid.Nil)
	clock.advance(idleAfter/2 + time.Second)

	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.callers, "ip:10.0.0.7")
	assert.Contains(t, rl.callers, "ip:10.0.0.8")
}

func TestRateLimiter_StopIdempotent(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
