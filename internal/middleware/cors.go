package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"go.uber.org/zap"
)

// CORS allows exactly one browser origin, with credentials so the refresh cookie travels.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" && origin == allowedOrigin {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With, X-Request-ID, X-Correlation-ID")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Add("Vary", "Origin")
		} else if origin != "" {
			logger.GetLogger().Debug("CORS origin not allowed",
				zap.String("origin", origin),
				zap.String("path", c.Request.URL.Path))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
