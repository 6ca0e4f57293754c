package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	configs "github.com/nimbuswolf/finance-api/config"
	"github.com/nimbuswolf/finance-api/internal/handler"
	"github.com/nimbuswolf/finance-api/internal/middleware"
	"github.com/nimbuswolf/finance-api/internal/repository"
	"github.com/nimbuswolf/finance-api/internal/router"
	"github.com/nimbuswolf/finance-api/internal/service"
	"github.com/nimbuswolf/finance-api/pkg/cache"
	"github.com/nimbuswolf/finance-api/pkg/circuit"
	"github.com/nimbuswolf/finance-api/pkg/database"
	"github.com/nimbuswolf/finance-api/pkg/health"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/nimbuswolf/finance-api/pkg/metrics"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"github.com/nimbuswolf/finance-api/pkg/pool"
	"github.com/nimbuswolf/finance-api/pkg/redis"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("link_policy", config.Plaid.LinkPolicy),
		zap.String("sync_policy", config.Plaid.SyncPolicy),
	)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	if !config.IsProduction() {
		if err := database.Seed(db, config.JWT.BcryptCost); err != nil {
			logger.GetLogger().Error("Failed to seed database", zap.Error(err))
		}
	}

	redisClient, err := redis.NewClient(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer redisClient.Close()

	m := metrics.New()

	poolCfg := pool.DefaultPoolConfig()
	poolCfg.RequestTimeout = config.Plaid.Timeout
	connPool := pool.NewConnectionPool(poolCfg, logger.GetLogger())
	defer connPool.CloseAllConnections()

	// Provider client behind a circuit breaker
	breakerCfg := circuit.DefaultConfig()
	breakerCfg.IsFailure = plaid.IsProviderFailure
	breakerCfg.OnStateChange = func(name string, _, to circuit.State) {
		m.SetCircuitOpen(name, to == circuit.StateOpen)
	}
	provider := plaid.NewGuarded(
		plaid.NewClient(plaid.Config{
			BaseURL:  config.Plaid.BaseURL,
			ClientID: config.Plaid.ClientID,
			Secret:   config.Plaid.Secret,
			Timeout:  config.Plaid.Timeout,
		}, plaid.WithHTTPClient(connPool.GetHTTPClient(config.Plaid.BaseURL))),
		circuit.NewBreaker("plaid", breakerCfg, logger.GetLogger()),
		m.ObserveProvider,
	)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	// Services
	tokenService, err := service.NewTokenService(config.JWT.AccessSecret, config.JWT.RefreshSecret, config.JWT.AccessTTL, config.JWT.RefreshTTL)
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize token service", zap.Error(err))
	}

	var revoker service.RefreshRevoker = service.NoopRevoker{}
	if config.JWT.RevokeOnLogout {
		revoker = service.NewDenylistRevoker(redisClient)
	}

	institutionNames := cache.NewCache[string](10 * time.Minute)
	defer institutionNames.Stop()

	authService := service.NewAuthService(userRepo, tokenService, revoker, config.JWT.BcryptCost)
	institutionService := service.NewInstitutionService(accountRepo, provider, config.Plaid.CountryCodes, institutionNames, config.Plaid.InstitutionCacheTTL)
	linkService := service.NewLinkService(accountRepo, provider, institutionService, config.App.Name, config.Plaid)
	syncService := service.NewSyncService(accountRepo, transactionRepo, provider, config.Plaid, m.ObserveSynced)
	transactionService := service.NewTransactionService(transactionRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Domain: config.Cookie.Domain,
		Secure: config.IsProduction(),
		MaxAge: config.JWT.RefreshTTL,
	}, config.IsProduction())
	plaidHandler := handler.NewPlaidHandler(linkService, syncService, transactionService, config.IsProduction())
	monitor := health.NewMonitor(time.Minute, logger.GetLogger())
	monitor.Register("database", &health.DatabaseChecker{DB: db}, true)
	monitor.Register("redis", &health.RedisChecker{Client: redisClient}, false)
	monitor.Start()
	defer monitor.Stop()
	healthHandler := handler.NewHealthHandler(monitor, config.App.Name)

	r := router.NewRouter(
		authHandler,
		plaidHandler,
		healthHandler,

		middleware.NewValidationMiddleware(),
		middleware.NewAuthMiddleware(tokenService),
		m,
		config,
	).SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), config.App.Timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.GetLogger().Error("Server forced to shutdown", zap.Error(err))
	}
}
