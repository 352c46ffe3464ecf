package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/fintrackapp/auth-service/internal/service"
)

// RateLimitMiddleware applies the sliding-window limiter to a route. The
// login path is not wired through this middleware; its limiting happens inside
// the service so the lockout check can run first.
func RateLimitMiddleware(limiter service.RateLimiter, operation string, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limiter.Check(c.Request.Context(), operation, keyFunc(c), limit, window); err != nil {
			writeServiceError(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPBasedKey extracts the rate limit key from the client IP
func IPBasedKey(c *gin.Context) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	return c.ClientIP()
}
