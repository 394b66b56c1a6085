package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/osinthub/search-api/internal/handler/dto"
	"github.com/osinthub/search-api/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimitMiddleware rejects callers that exhausted the limiter's window.
// Each endpoint group gets its own Limiter instance with its own thresholds.
func RateLimitMiddleware(limiter *ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("RateLimitMiddleware")
	return func(c *gin.Context) {
		identity := ratelimit.CallerIdentity(c.Request)
		result := limiter.Check(identity)

		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			log.Info("Rate limit exceeded", zap.String("identity", identity), zap.String("path", c.FullPath()))

			retryAfter := int(result.ResetIn.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.APIErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "Too many requests. Please wait a moment.",
			})
			return
		}

		c.Next()
	}
}
