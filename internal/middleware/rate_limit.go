package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RoberAF/chatbot/internal/constants"
	"github.com/RoberAF/chatbot/pkg/logger"
)

// rateLimiter is a sliding-window counter per client IP.
type rateLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time
	maxRequest int
	duration   time.Duration
}

func newRateLimiter(maxRequest int, duration time.Duration) *rateLimiter {
	return &rateLimiter{
		windows:    make(map[string][]time.Time),
		maxRequest: maxRequest,
		duration:   duration,
	}
}

func (rl *rateLimiter) cleanup(now time.Time) {
	for ip, stamps := range rl.windows {
		var valid []time.Time
		for _, t := range stamps {
			if now.Sub(t) <= rl.duration {
				valid = append(valid, t)
			}
		}
		if len(valid) > 0 {
			rl.windows[ip] = valid
		} else {
			delete(rl.windows, ip)
		}
	}
}

func RateLimit(maxRequest int, duration time.Duration) gin.HandlerFunc {
	limiter := newRateLimiter(maxRequest, duration)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		limiter.mu.Lock()
		defer limiter.mu.Unlock()

		limiter.cleanup(now)

		stamps := limiter.windows[ip]
		if len(stamps) >= maxRequest {
			logger.WarnWithContext(c.Request.Context(), "Rate limit exceeded").
				String("client_ip", ip).
				String("path", c.Request.URL.Path).
				Int("current_requests", len(stamps)).
				Int("max_requests", maxRequest).
				Log()

			c.JSON(http.StatusTooManyRequests, constants.BuildErrorResponse(
				"Rate limit exceeded",
				gin.H{"retryAfter": duration.Seconds()},
			))
			c.Abort()
			return
		}

		limiter.windows[ip] = append(stamps, now)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequest))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequest-len(stamps)-1))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", now.Add(duration).Unix()))

		c.Next()
	}
}
