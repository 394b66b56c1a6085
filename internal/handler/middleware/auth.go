package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/service"
	"go.uber.org/zap"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	principalContextKey = "principal"
)

// AuthMiddleware resolves the bearer credential to a Principal via the
// identity provider and stores it in the request context.
func AuthMiddleware(verifier service.TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AuthMiddleware")
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeader)
		if authHeader == "" {
			log.Debug("Authorization header is missing")
			_ = c.Error(fmt.Errorf("%w: authorization header required", ierr.ErrUnauthenticated))
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			log.Debug("Authorization header format is invalid")
			_ = c.Error(fmt.Errorf("%w: invalid authorization header format", ierr.ErrUnauthenticated))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		if tokenString == "" {
			log.Debug("Token is missing after Bearer prefix")
			_ = c.Error(fmt.Errorf("%w: token missing", ierr.ErrUnauthenticated))
			c.Abort()
			return
		}

		principal, err := verifier.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			log.Warn("Token validation failed", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		log.Debug("Bearer token validated, setting principal in context", zap.String("subject", principal.ID.String()))
		c.Set(principalContextKey, principal)

		c.Next()
	}
}

func GetPrincipal(c *gin.Context) *service.Principal {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*service.Principal)
	if !ok {
		return nil
	}
	return principal
}
