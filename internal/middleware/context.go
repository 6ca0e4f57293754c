package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimbuswolf/finance-api/internal/constants"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
)

// ContextMiddleware seeds the request context with request and correlation ids
// and echoes them back as response headers.
func ContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		correlationID := c.GetHeader(constants.HeaderXCorrelationID)
		if correlationID == "" {
			correlationID = requestID
		}

		ctx := ctxutil.NewRequestContext(c.Request.Context(), requestID, correlationID, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Header(constants.HeaderXRequestID, requestID)
		c.Header(constants.HeaderXCorrelationID, correlationID)

		c.Next()

		logger.DebugWithContext(c.Request.Context(), "Request completed").
			Method(c.Request.Method).
			Path(c.Request.URL.Path).
			StatusCode(c.Writer.Status()).
			Int("response_size", c.Writer.Size()).
			Log()
	}
}
