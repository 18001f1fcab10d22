package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestWriteLimiterBurstAndRefill(t *testing.T) {
	wl := NewWriteLimiter(60, 2)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	wl.now = func() time.Time { return now }

	assert.True(t, wl.Allow("a"))
	assert.True(t, wl.Allow("a"))
	assert.False(t, wl.Allow("a"))
	assert.True(t, wl.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, wl.Allow("a"))
	assert.False(t, wl.Allow("a"))
}

func TestWriteLimiterSweepsIdleKeys(t *testing.T) {
	wl := NewWriteLimiter(0, 0)
	wl.maxKeys = 2
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	wl.now = func() time.Time { return now }

	wl.Allow("a")
	wl.Allow("b")
	now = now.Add(time.Hour)
	wl.Allow("c")

	assert.Len(t, wl.entries, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	wl := NewWriteLimiter(1, 1)
	alice := &models.Identity{ID: uuid.New(), Role: models.RoleStudent}
	bob := &models.Identity{ID: uuid.New(), Role: models.RoleStudent}

	var who *models.Identity
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if who != nil {
			c.Set(identityKey, who)
		}
		c.Next()
	}, RateLimit(wl), whoami)

	who = alice
	assert.Equal(t, http.StatusOK, request(r).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r).Code)

	who = bob
	assert.Equal(t, http.StatusOK, request(r).Code)

	who = nil
	assert.Equal(t, http.StatusOK, request(r).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r).Code)
}
