package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

// idleAfter is how long a caller may stay quiet before its limiter is dropped.
const idleAfter = 10 * time.Minute

// RateLimiter throttles callers with one token bucket each. Authenticated
// callers are keyed by user id, anonymous ones by remote host.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*caller

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter starts a limiter whose idle callers are swept every
// sweepInterval. Call Stop on shutdown.
func NewRateLimiter(sweepInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*caller),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.sweepEvery(sweepInterval)
	return rl
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Limit allows each caller a burst of perMinute requests refilled evenly
// over a minute. Denied requests get 429 with Retry-After in seconds. It
// must run after Auth to key by user.
func (rl *RateLimiter) Limit(perMinute int) Middleware {
	every := rate.Every(time.Minute / time.Duration(perMinute))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wait := rl.reserve(callerKey(r), every, perMinute); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// reserve takes a token for key and returns zero, or how long the caller
// has to wait for one. A refused reservation is given back.
func (rl *RateLimiter) reserve(key string, every rate.Limit, burst int) time.Duration {
	now := rl.now()

	rl.mu.Lock()
	c, ok := rl.callers[key]
	if !ok {
		c = &caller{limiter: rate.NewLimiter(every, burst)}
		rl.callers[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Minute
	}
	wait := res.DelayFrom(now)
	if wait > 0 {
		res.CancelAt(now)
	}
	return wait
}

func callerKey(r *http.Request) string {
	if userID, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-idleAfter)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, c := range rl.callers {
		if c.lastSeen.Before(cutoff) {
			delete(rl.callers, key)
		}
	}
}
