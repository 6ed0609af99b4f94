// Package limits provides per-key rate limiting for live events and form
// posts.
package limits

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrRateLimitExceeded is returned when a key has no tokens left.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Limiter limits the rate of operations per key.
type Limiter interface {
	// Allow reports whether one more operation is allowed for key.
	Allow(key string) bool

	// Forget drops the state kept for key.
	Forget(key string)
}

// TokenBucket implements a token bucket rate limiter. Buckets start full.
type TokenBucket struct {
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
	buckets map[string]*bucket
	mu      sync.Mutex
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewTokenBucket creates a limiter refilling rate tokens per second up to
// burst.
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	return &TokenBucket{
		rate:    rate,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket.
func (tb *TokenBucket) Allow(key string) bool {
	return tb.AllowN(key, 1)
}

// AllowN takes n tokens from key's bucket if it has them.
func (tb *TokenBucket) AllowN(key string, n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.burst), lastFill: now}
		tb.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastFill).Seconds() * tb.rate
	if b.tokens > float64(tb.burst) {
		b.tokens = float64(tb.burst)
	}
	b.lastFill = now

	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

// Forget drops key's bucket.
func (tb *TokenBucket) Forget(key string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	delete(tb.buckets, key)
}

// Prune drops buckets idle for longer than idle and returns how many.
func (tb *TokenBucket) Prune(idle time.Duration) int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	n := 0
	for key, b := range tb.buckets {
		if now.Sub(b.lastFill) > idle {
			delete(tb.buckets, key)
			n++
		}
	}
	return n
}

// Janitor prunes buckets every interval until ctx ends. A bucket idle for
// its full refill time is pruned without changing any later decision.
func (tb *TokenBucket) Janitor(ctx context.Context, interval time.Duration) {
	refill := time.Duration(float64(tb.burst) / tb.rate * float64(time.Second))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tb.Prune(refill)
		case <-ctx.Done():
			return
		}
	}
}

// Len returns the number of tracked keys.
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// Middleware answers 429 when keyFunc's key is over its limit. An empty key
// is not limited.
func Middleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := keyFunc(r); key != "" && !limiter.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
