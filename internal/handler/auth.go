package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/middleware"
	"github.com/nimbuswolf/finance-api/internal/service"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
)

// CookieConfig shapes the refresh cookie.
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	authService *service.AuthService
	cookie      CookieConfig
	production  bool
}

func NewAuthHandler(authService *service.AuthService, cookie CookieConfig, production bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		production:  production,
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.RefreshCookieName, token, maxAge, constants.RefreshCookiePath, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "Register")

	req, ok := middleware.ValidatedBody[dto.RegisterRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	result, err := h.authService.Register(ctx, *req)
	if err != nil {
		logger.WarnWithContext(ctx, "Registration failed").
			Err(err).
			Log()
		writeError(c, err, !h.production)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, int(h.cookie.MaxAge.Seconds()))

	logger.InfoWithContext(ctx, "User registered").
		String("new_user_id", result.User.ID).
		Log()
	c.JSON(http.StatusCreated, constants.BuildSuccessResponse("User registered successfully", result))
}

func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "Login")

	req, ok := middleware.ValidatedBody[dto.LoginRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	result, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		logger.WarnWithContext(ctx, "Login failed").
			Err(err).
			Log()
		writeError(c, err, !h.production)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, int(h.cookie.MaxAge.Seconds()))

	logger.InfoWithContext(ctx, "User logged in").
		String("subject", result.User.ID).
		Log()
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Login successful", result))
}

// RefreshToken reads the refresh token from the cookie only.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "RefreshToken")

	token, _ := c.Cookie(constants.RefreshCookieName)

	result, err := h.authService.Refresh(ctx, token)
	if err != nil {
		logger.InfoWithContext(ctx, "Token refresh failed").
			Err(err).
			Log()
		writeError(c, err, !h.production)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Token refreshed successfully", result))
}

// Logout always succeeds and always clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "Logout")

	token, _ := c.Cookie(constants.RefreshCookieName)
	h.authService.Logout(ctx, token)

	h.setRefreshCookie(c, "", -1)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Logout successful", nil))
}

func (h *AuthHandler) Me(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "Me")

	userID, ok := middleware.UserID(c)
	if !ok {
		writeError(c, apperrors.ErrUnauthorized, !h.production)
		return
	}

	user, err := h.authService.GetProfile(ctx, userID)
	if err != nil {
		writeError(c, err, !h.production)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("User retrieved successfully", dto.ProfileResponse{User: *user}))
}
