package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long a client's limiter survives without requests.
const idleLimiterTTL = 10 * time.Minute

// ClientRateLimiter keeps one token bucket per client IP. Idle buckets expire.
type ClientRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewClientRateLimiter creates a limiter allowing r requests per second with burst b.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: cache.New(idleLimiterTTL, 2*idleLimiterTTL),
		r:        r,
		b:        b,
	}
}

// Limiter returns the bucket for ip, creating it on first use.
func (l *ClientRateLimiter) Limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(ip); ok {
		l.limiters.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.limiters.SetDefault(ip, limiter)
	return limiter
}

// RateLimit rejects requests beyond the client's budget with 429.
func RateLimit(l *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
