package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/nimbuswolf/finance-api/config"
	"github.com/nimbuswolf/finance-api/internal/repository"
	"github.com/nimbuswolf/finance-api/internal/service"
	"github.com/nimbuswolf/finance-api/pkg/cache"
	"github.com/nimbuswolf/finance-api/pkg/database"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"github.com/nimbuswolf/finance-api/pkg/pool"
	"go.uber.org/zap"
)

func main() {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Resolve names without writing them")
	timeout := fs.Duration("timeout", 10*time.Minute, "Timeout for the whole run")
	fs.Usage = func() {
		fmt.Println("Usage: backfill [options]")
		fmt.Println("\nResolves institution names for accounts linked while the provider lookup failed.")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	config, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitLogger(config); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.Open(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	names := cache.NewCache[string](time.Minute)
	defer names.Stop()

	poolCfg := pool.DefaultPoolConfig()
	poolCfg.RequestTimeout = config.Plaid.Timeout
	connPool := pool.NewConnectionPool(poolCfg, logger.GetLogger())
	defer connPool.CloseAllConnections()

	provider := plaid.NewClient(plaid.Config{
		BaseURL:  config.Plaid.BaseURL,
		ClientID: config.Plaid.ClientID,
		Secret:   config.Plaid.Secret,
		Timeout:  config.Plaid.Timeout,
	}, plaid.WithHTTPClient(connPool.GetHTTPClient(config.Plaid.BaseURL)))
	institutions := service.NewInstitutionService(
		repository.NewAccountRepository(db),
		provider,
		config.Plaid.CountryCodes,
		names,
		config.Plaid.InstitutionCacheTTL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	report, err := institutions.Backfill(ctx, *dryRun)
	if report != nil {
		if rerr := RenderReport(os.Stdout, report); rerr != nil {
			logger.GetLogger().Error("Failed to render backfill report", zap.Error(rerr))
		}
	}
	if err != nil {
		logger.GetLogger().Error("Backfill aborted", zap.Error(err))
		os.Exit(1)
	}
	if len(report.Failures) > 0 {
		os.Exit(2)
	}
}
