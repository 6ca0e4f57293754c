package constants

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// Context Keys for request tracking and metadata
const (
	CtxKeyRequestID     ContextKey = "request_id"
	CtxKeyUserID        ContextKey = "user_id"
	CtxKeyUserEmail     ContextKey = "user_email"
	CtxKeyClientIP      ContextKey = "client_ip"
	CtxKeyUserAgent     ContextKey = "user_agent"
	CtxKeyCorrelationID ContextKey = "correlation_id"
	CtxKeyStartTime     ContextKey = "start_time"
	CtxKeyModule        ContextKey = "module"
	CtxKeyFunction      ContextKey = "function"
)

// Keys stored on *gin.Context by the auth gate
const (
	GinKeyUserID    = "userId"
	GinKeyUserEmail = "email"
	// decoded, sanitized and validated request body set by ValidationMiddleware
	GinKeyRequestBody = "validatedBody"
)
