package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"festival-companion/backend/internal/metrics"
	"festival-companion/backend/internal/platform/ratelimiter"
)

// RateLimit throttles per client IP. A nil limiter lets every request through.
func RateLimit(limiter *ratelimiter.MapLimiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(c.ClientIP(), time.Now()) {
			c.Next()
			return
		}
		m.RedeemThrottled()
		c.Header("Retry-After", "5")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limited",
			"error_description": "Too many attempts. Please wait and try again.",
		})
	}
}
