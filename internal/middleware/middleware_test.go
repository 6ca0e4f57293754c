package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/service"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]error

func (s stubVerifier) Verify(token string, _ service.TokenKind) (*service.Claims, error) {
	if err, ok := s[token]; ok {
		return nil, err
	}
	return &service.Claims{UserID: "user-" + token, Email: token + "@example.com"}, nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) constants.Envelope {
	t.Helper()
	var env constants.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRequireAuth(t *testing.T) {
	verifier := stubVerifier{
		"expired": apperrors.WrapError(apperrors.ErrTokenExpired, assert.AnError),
		"forged":  apperrors.ErrInvalidToken,
	}
	mw := NewAuthMiddleware(verifier)

	r := gin.New()
	r.GET("/private", mw.RequireAuth(), func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		assert.Equal(t, id, ctxutil.GetUserID(c.Request.Context()))
		c.String(http.StatusOK, id)
	})

	tests := []struct {
		name    string
		header  string
		status  int
		message string
		code    string
	}{
		{name: "no header", status: http.StatusUnauthorized, message: constants.MsgNoAuthHeader},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, message: constants.MsgInvalidAuthHeader},
		{name: "extra parts", header: "Bearer a b", status: http.StatusUnauthorized, message: constants.MsgInvalidAuthHeader},
		{name: "empty token", header: "Bearer ", status: http.StatusUnauthorized, message: constants.MsgInvalidAuthHeader},
		{name: "expired", header: "Bearer expired", status: http.StatusUnauthorized, message: "Token expired", code: "TOKEN_EXPIRED"},
		{name: "forged", header: "Bearer forged", status: http.StatusUnauthorized, message: "Invalid token", code: "INVALID_TOKEN"},
		{name: "valid", header: "Bearer alice", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user-alice", w.Body.String())
				return
			}
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	mw := NewAuthMiddleware(stubVerifier{"forged": apperrors.ErrInvalidToken})

	r := gin.New()
	r.GET("/maybe", mw.OptionalAuth(), func(c *gin.Context) {
		id, _ := UserID(c)
		c.String(http.StatusOK, id)
	})

	for header, want := range map[string]string{
		"":              "",
		"Bearer forged": "",
		"Bearer bob":    "user-bob",
	} {
		req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Body.String())
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, remaining := rl.allow("1.2.3.4")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, _ = rl.allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = rl.allow("1.2.3.4")
	assert.False(t, ok)

	ok, _ = rl.allow("5.6.7.8")
	assert.True(t, ok, "limits are per client")

	now = now.Add(61 * time.Second)
	ok, _ = rl.allow("1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.GET("/limited", RateLimit(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, constants.MsgRateLimited, decode(t, w).Message)
}

func TestRateLimit_DisabledWhenNotPositive(t *testing.T) {
	r := gin.New()
	r.GET("/open", RateLimit(0, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestValidateRequestBody(t *testing.T) {
	mw := NewValidationMiddleware()

	r := gin.New()
	r.POST("/register", mw.ValidateRequestBody(func() any { return &dto.RegisterRequest{} }), func(c *gin.Context) {
		req, ok := ValidatedBody[dto.RegisterRequest](c)
		require.True(t, ok)
		c.JSON(http.StatusOK, req)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing credentials", func(t *testing.T) {
		w := post(`{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		assert.Equal(t, "Email and password are required", env.Message)
		assert.Equal(t, []string{"Email and password are required"}, env.Errors)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := post(`{"email":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid JSON body", decode(t, w).Message)
	})

	t.Run("sanitized before validation", func(t *testing.T) {
		w := post(`{"email":"  ada@example.com ","password":"P<a>ss1!word","firstName":"<b>Ada</b>"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var got dto.RegisterRequest
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, "Ada", got.FirstName)
		assert.Equal(t, "P<a>ss1!word", got.Password)
	})
}

func TestContextMiddleware_EchoesIDs(t *testing.T) {
	r := gin.New()
	r.Use(ContextMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetCorrelationID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(constants.HeaderXCorrelationID, "corr-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "corr-1", w.Body.String())
	assert.Equal(t, "corr-1", w.Header().Get(constants.HeaderXCorrelationID))
	assert.NotEmpty(t, w.Header().Get(constants.HeaderXRequestID))
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, constants.MsgInternalError, decode(t, w).Message)
}
