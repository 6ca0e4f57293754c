package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/nimbuswolf/finance-api/pkg/validation"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type sanitizer interface {
	Sanitize()
}

type ValidationMiddleware struct {
	validate *validator.Validate
}

func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{validate: validation.New()}
}

// ValidateRequestBody decodes the JSON body into factory(), sanitizes and
// validates it, and stores the result under constants.GinKeyRequestBody.
// The first message becomes the envelope message; all of them go in errors.
func (m *ValidationMiddleware) ValidateRequestBody(factory func() any) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
			if err != nil {
				logger.GetLogger().Error("Failed to read request body",
					zap.String("client_ip", clientIP),
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		request := factory()
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, request); err != nil {
				logger.GetLogger().Warn("Malformed JSON body",
					zap.String("client_ip", clientIP),
					zap.String("path", c.Request.URL.Path),
					zap.Int("body_size", len(body)),
					zap.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusBadRequest,
					constants.BuildErrorResponse("Invalid JSON body", []string{err.Error()}))
				return
			}
		}

		if s, ok := request.(sanitizer); ok {
			s.Sanitize()
		}

		if err := m.validate.Struct(request); err != nil {
			messages := validation.Messages(err)
			logger.GetLogger().Debug("Request validation failed",
				zap.String("client_ip", clientIP),
				zap.String("path", c.Request.URL.Path),
				zap.Strings("validation_errors", messages),
			)
			c.AbortWithStatusJSON(http.StatusBadRequest, constants.BuildErrorResponse(messages[0], messages))
			return
		}

		c.Set(constants.GinKeyRequestBody, request)
		c.Next()
	}
}

// ValidatedBody returns the body stored by ValidateRequestBody.
func ValidatedBody[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(constants.GinKeyRequestBody)
	if !ok {
		return nil, false
	}
	body, ok := v.(*T)
	return body, ok
}
