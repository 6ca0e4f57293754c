package middleware

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"go.uber.org/zap"
)

const slowRequestThreshold = 2 * time.Second

// LoggingMiddleware routes gin's access log into zap.
func LoggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			logger.LogRequest(
				param.Method,
				param.Path,
				param.StatusCode,
				param.Latency.Milliseconds(),
				param.ClientIP,
				param.Request.UserAgent(),
			)

			if param.ErrorMessage != "" {
				logger.GetLogger().Error("Request error",
					zap.String("error", param.ErrorMessage),
					zap.String("method", param.Method),
					zap.String("path", param.Path),
					zap.Int("status_code", param.StatusCode),
					zap.Duration("latency", param.Latency),
				)
			}

			if param.Latency > slowRequestThreshold {
				logger.GetLogger().Warn("Slow request detected",
					zap.String("method", param.Method),
					zap.String("path", param.Path),
					zap.Duration("latency", param.Latency),
				)
			}

			return ""
		},
		Output: io.Discard,
	})
}

// RecoveryMiddleware logs a panic and answers with the 500 envelope.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.LogPanic(recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			constants.BuildCodedErrorResponse(constants.MsgInternalError, "INTERNAL_ERROR"))
	})
}

// SecurityLoggingMiddleware records auth attempts and scanner-looking clients.
func SecurityLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		userAgent := c.Request.UserAgent()

		if isSuspiciousUserAgent(userAgent) {
			logger.GetLogger().Warn("Suspicious user agent detected",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", userAgent),
				zap.String("path", c.Request.URL.Path),
			)
		}

		if c.Request.Method == http.MethodPost && strings.HasSuffix(c.Request.URL.Path, "/auth/login") {
			logger.GetLogger().Info("Login attempt",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", userAgent),
			)
		}

		c.Next()
	}
}

func isSuspiciousUserAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, pattern := range []string{"sqlmap", "nikto", "nmap", "masscan", "burp", "scanner"} {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
