// ratelimit.go limits how often one caller may run analyses.
//
// Each caller (signed-in user, or client IP for anonymous requests) gets a
// token bucket from golang.org/x/time/rate holding perHour tokens that
// refill steadily over an hour. An empty bucket means 429 Too Many Requests.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

// RateLimiter tracks request rates per caller.
type RateLimiter struct {
	perHour int
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perHour requests per caller.
func NewRateLimiter(perHour int) *RateLimiter {
	rl := &RateLimiter{
		perHour: perHour,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}

	go rl.cleanup()

	return rl
}

// RateLimit returns Gin middleware enforcing the limit. A non-positive
// perHour disables limiting.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.perHour <= 0 {
			c.Next()
			return
		}

		allowed, remaining := rl.allow(callerKey(c))
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rl.perHour))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
					Error:   "rate_limit_exceeded",
					Message: "Rate limit exceeded. Try again later.",
					Code:    http.StatusTooManyRequests,
				})
			} else {
				c.String(http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
			}
			c.Abort()
			return
		}

		c.Next()
	}
}

// allow consumes a token for key and reports the whole tokens left.
func (rl *RateLimiter) allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		every := time.Hour / time.Duration(rl.perHour)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), rl.perHour)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	if !b.limiter.AllowN(now, 1) {
		return false, 0
	}
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining
}

// cleanup periodically removes buckets idle for over an hour. An idle hour
// refills any bucket completely, so dropping it loses nothing.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for key, b := range rl.buckets {
			if now.Sub(b.lastSeen) > time.Hour {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

func callerKey(c *gin.Context) string {
	if s := GetSession(c); s.SignedIn {
		return "user:" + s.UserID
	}
	return "ip:" + c.ClientIP()
}
