package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/service"
	"go.uber.org/zap"
)

const adminUsernameContextKey = "adminUsername"

// AdminAuthMiddleware guards the operator endpoints with the HS256 tokens
// issued by the admin login.
func AdminAuthMiddleware(adminAuth *service.AdminAuthService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AdminAuthMiddleware")
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeader)
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			_ = c.Error(fmt.Errorf("%w: admin token required", ierr.ErrUnauthenticated))
			c.Abort()
			return
		}

		username, err := adminAuth.ValidateToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			log.Warn("Admin token validation failed", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(adminUsernameContextKey, username)
		c.Next()
	}
}
