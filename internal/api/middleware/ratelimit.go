package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Token Bucket Rate Limiter
// ──────────────────────────────────────────────────────────────────────────────

const (
	// sweepEvery is how often idle buckets are evicted.
	sweepEvery = 5 * time.Minute
	// idleAfter is how long a bucket may go unused before eviction.
	idleAfter = 10 * time.Minute
)

// bucket is the token bucket of one client IP.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// rateLimiter holds per-IP buckets.  Idle buckets are swept lazily on the
// request path, so no background goroutine outlives the router.
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64 // tokens per second
	burst     float64 // maximum token capacity
	lastSweep time.Time
	now       func() time.Time
}

// newRateLimiter creates a limiter of rps requests per second with a burst of
// max(10, rps).
func newRateLimiter(rps int) *rateLimiter {
	burst := float64(rps)
	if burst < 10 {
		burst = 10
	}
	return &rateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      float64(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// allow deducts one token from key's bucket and reports whether one was
// available.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= idleAfter {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.buckets[key] = b
	}
	b.tokens = min(rl.burst, b.tokens+now.Sub(b.lastSeen).Seconds()*rl.rate)
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimitMiddleware enforces a per-IP limit of rps requests per second.
// Clients over the limit receive 429 Too Many Requests.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	rl := newRateLimiter(rps)
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, slow down",
				"code":    "ERR_RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
