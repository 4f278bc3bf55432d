package middleware

import (
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LimiterSource hands out the bucket for a key.
type LimiterSource interface {
	Get(key string) *rate.Limiter
}

// RateLimitMiddleware throttles per client IP. Used on the token endpoints.
func RateLimitMiddleware(limiters LimiterSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := limiters.Get(c.ClientIP())
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
