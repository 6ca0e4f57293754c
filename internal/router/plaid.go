package router

import (
	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/dto"
)

func (r *Router) plaidRoutes(version *gin.RouterGroup) {
	plaid := version.Group("/plaid")
	plaid.Use(r.authMw.RequireAuth())
	{
		plaid.POST("/create-link-token", r.plaidHandler.CreateLinkToken)
		plaid.POST("/exchange-public-token",
			r.validMw.ValidateRequestBody(func() any { return &dto.ExchangePublicTokenRequest{} }),
			r.plaidHandler.ExchangePublicToken)
		plaid.GET("/accounts", r.plaidHandler.GetAccounts)
		plaid.POST("/accounts/:accountId/sync", r.plaidHandler.SyncTransactions)
		plaid.DELETE("/accounts/:accountId", r.plaidHandler.DeleteAccount)
		plaid.GET("/transactions", r.plaidHandler.GetTransactions)
	}
}
