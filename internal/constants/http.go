package constants

// HTTP Header Names
const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderUserAgent      = "User-Agent"
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

const (
	ContentTypeJSON = "application/json"
	BearerPrefix    = "Bearer"
)

// Refresh cookie
const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/"
)

// Envelope codes that clients branch on
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeInvalidToken = "INVALID_TOKEN"
)

// Auth gate messages
const (
	MsgNoAuthHeader         = "No authorization header provided"
	MsgInvalidAuthHeader    = "Invalid authorization header format. Use: Bearer <token>"
	MsgInvalidToken         = "Invalid token"
	MsgTokenExpired         = "Token expired"
	MsgUserNotAuthenticated = "User not authenticated"
)

// Common HTTP Error Messages
const (
	MsgNotFound           = "Resource not found"
	MsgBadRequest         = "Invalid request"
	MsgValidationFailed   = "Validation failed"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgRateLimited        = "Too many requests, please try again later"
)
