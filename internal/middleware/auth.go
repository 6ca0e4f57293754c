package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/constants"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/service"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"go.uber.org/zap"
)

// TokenVerifier is the part of the token service the gate needs.
type TokenVerifier interface {
	Verify(token string, kind service.TokenKind) (*service.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// bearerToken returns the token of a header of the exact form "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != constants.BearerPrefix || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *AuthMiddleware) authenticate(c *gin.Context, claims *service.Claims) {
	c.Set(constants.GinKeyUserID, claims.UserID)
	c.Set(constants.GinKeyUserEmail, claims.Email)
	c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), claims.UserID))
}

// RequireAuth rejects the request unless it carries a valid access token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.HeaderAuthorization)
		if header == "" {
			logger.GetLogger().Warn("Missing Authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			c.AbortWithStatusJSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgNoAuthHeader, nil))
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			logger.GetLogger().Warn("Invalid Authorization header format",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			c.AbortWithStatusJSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgInvalidAuthHeader, nil))
			return
		}

		claims, err := m.tokens.Verify(token, service.AccessToken)
		if err != nil {
			if errors.Is(err, apperrors.ErrTokenExpired) {
				logger.GetLogger().Debug("Expired access token",
					zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					constants.BuildCodedErrorResponse(constants.MsgTokenExpired, constants.CodeTokenExpired))
				return
			}
			logger.GetLogger().Warn("Invalid access token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				constants.BuildCodedErrorResponse(constants.MsgInvalidToken, constants.CodeInvalidToken))
			return
		}

		m.authenticate(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and never rejects.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader(constants.HeaderAuthorization)); ok {
			if claims, err := m.tokens.Verify(token, service.AccessToken); err == nil {
				m.authenticate(c, claims)
			}
		}
		c.Next()
	}
}

// UserID returns the identity set by the gate.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(constants.GinKeyUserID)
	return id, id != ""
}
