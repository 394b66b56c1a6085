package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware answers cross-origin requests permissively. The portal
// frontend lives on a separate origin and callers also hit the API from
// scripts, so every endpoint answers preflight for any origin.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	})
}
