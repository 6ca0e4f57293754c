package router

import (
	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/dto"
)

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	{
		auth.POST("/register",
			r.validMw.ValidateRequestBody(func() any { return &dto.RegisterRequest{} }),
			r.authHandler.Register)
		auth.POST("/login",
			r.validMw.ValidateRequestBody(func() any { return &dto.LoginRequest{} }),
			r.authHandler.Login)
		auth.POST("/refresh-token", r.authHandler.RefreshToken)
		auth.POST("/logout", r.authHandler.Logout)

		protected := auth.Group("")
		protected.Use(r.authMw.RequireAuth())
		{
			protected.GET("/me", r.authHandler.Me)
		}
	}
}
