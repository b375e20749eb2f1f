package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Smartdevs17/supply-chain-payment/api/routes"
	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/internal/disputes"
	"github.com/Smartdevs17/supply-chain-payment/internal/escrow"
	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	"github.com/Smartdevs17/supply-chain-payment/internal/platform"
	"github.com/Smartdevs17/supply-chain-payment/internal/suppliers"
	"github.com/Smartdevs17/supply-chain-payment/pkg/config"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db"
	"github.com/Smartdevs17/supply-chain-payment/pkg/logger"
	"github.com/Smartdevs17/supply-chain-payment/pkg/metrics"
	"github.com/Smartdevs17/supply-chain-payment/pkg/migrate"
	"github.com/Smartdevs17/supply-chain-payment/pkg/outbox"
	"github.com/Smartdevs17/supply-chain-payment/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	escrowMetrics := metrics.NewEscrowMetrics(registry)

	accountsRepo := accounts.NewRepository(dbClient.DB())
	suppliersRepo := suppliers.NewRepository(dbClient.DB())
	escrowRepo := escrow.NewRepository(dbClient.DB())
	platformRepo := platform.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	accountsService, err := accounts.NewService(accounts.ServiceParams{
		Repo:        accountsRepo,
		LedgerRepo:  ledgerRepo,
		Tx:          dbClient,
		Outbox:      outboxService,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	suppliersService, err := suppliers.NewService(suppliersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create suppliers service", err)
		os.Exit(1)
	}

	fundsEngine, err := escrow.NewFundsEngine(accountsRepo, suppliersRepo, platformRepo, ledgerRepo, escrowMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create funds engine", err)
		os.Exit(1)
	}

	escrowService, err := escrow.NewService(escrow.ServiceParams{
		Repo:          escrowRepo,
		SuppliersRepo: suppliersRepo,
		PlatformRepo:  platformRepo,
		Funds:         fundsEngine,
		Tx:            dbClient,
		Outbox:        outboxService,
		Metrics:       escrowMetrics,
		Config:        cfg.Platform,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}

	disputesService, err := disputes.NewService(disputes.ServiceParams{
		Repo:          escrowRepo,
		SuppliersRepo: suppliersRepo,
		PlatformRepo:  platformRepo,
		Funds:         fundsEngine,
		Tx:            dbClient,
		Outbox:        outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create disputes service", err)
		os.Exit(1)
	}

	platformService, err := platform.NewService(platform.ServiceParams{
		Repo:         platformRepo,
		AccountsRepo: accountsRepo,
		LedgerRepo:   ledgerRepo,
		Tx:           dbClient,
		Outbox:       outboxService,
		Config:       cfg.Platform,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create platform service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			accountsService,
			suppliersService,
			escrowService,
			disputesService,
			platformService,
			ledgerService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
