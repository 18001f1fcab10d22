package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campus-events/internal/models"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// WriteLimiter is a per-caller token bucket. Entries idle for longer than
// idleTTL are swept once the map grows past maxKeys.
type WriteLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	maxKeys int
	idleTTL time.Duration
	now     func() time.Time
}

func NewWriteLimiter(perMinute, burst int) *WriteLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 10
	}
	return &WriteLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		maxKeys: 10000,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (wl *WriteLimiter) Allow(key string) bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	now := wl.now()
	e, ok := wl.entries[key]
	if !ok {
		if len(wl.entries) >= wl.maxKeys {
			wl.sweep(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(wl.limit, wl.burst)}
		wl.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (wl *WriteLimiter) sweep(now time.Time) {
	for k, e := range wl.entries {
		if now.Sub(e.lastSeen) > wl.idleTTL {
			delete(wl.entries, k)
		}
	}
}

// RateLimit throttles writes per user, falling back to the client IP for
// anonymous callers.
func RateLimit(wl *WriteLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if who := Identity(c); who != nil {
			key = "user:" + who.ID.String()
		}
		if !wl.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse("too many requests, slow down"))
			return
		}
		c.Next()
	}
}
