package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/config"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/handler"
	"github.com/nimbuswolf/finance-api/internal/middleware"
	"github.com/nimbuswolf/finance-api/pkg/metrics"
)

type Router struct {
	authHandler   *handler.AuthHandler
	plaidHandler  *handler.PlaidHandler
	healthHandler *handler.HealthHandler

	validMw *middleware.ValidationMiddleware
	authMw  *middleware.AuthMiddleware
	metrics *metrics.Metrics
	Config  *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	plaid *handler.PlaidHandler,
	health *handler.HealthHandler,

	validMw *middleware.ValidationMiddleware,
	authMw *middleware.AuthMiddleware,
	m *metrics.Metrics,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:   auth,
		plaidHandler:  plaid,
		healthHandler: health,

		validMw: validMw,
		authMw:  authMw,
		metrics: m,
		Config:  cfg,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.ContextMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityLoggingMiddleware())
	router.Use(middleware.CORS(r.Config.App.FrontendURL))
	if r.metrics != nil {
		router.Use(middleware.MetricsMiddleware(r.metrics))
		router.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			// ahead of the limiter: health checks are not throttled
			v1.GET("/health", r.healthHandler.HealthCheck)

			v1.Use(middleware.RateLimit(r.Config.RateLimit.Request, time.Duration(r.Config.RateLimit.Duration)*time.Second))

			r.authRoutes(v1)
			r.plaidRoutes(v1)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, constants.BuildErrorResponse("Not Found - "+c.Request.URL.Path, nil))
	})

	return router
}
