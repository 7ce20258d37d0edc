package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"merchant-backoffice/config"
	httpHandler "merchant-backoffice/internal/adapter/http/handler"
	pgStorage "merchant-backoffice/internal/adapter/storage/postgres"
	redisStorage "merchant-backoffice/internal/adapter/storage/redis"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/internal/service"
	"merchant-backoffice/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Merchant Back Office")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	adjustmentRepo := pgStorage.NewAdjustmentRepo(pool)
	rateRepo := pgStorage.NewRateRepo(pool)
	settingsRepo := pgStorage.NewSettingsRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	rateCache := redisStorage.NewRateCache(rdb)
	sweepLock := redisStorage.NewSweepLock(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	settingsSvc := service.NewSettingsRegistry(settingsRepo, log)
	if err := settingsSvc.InitDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed default settings")
	}

	rateStore, err := service.NewRateStore(rateRepo, transactor, rateCache, cfg.Fx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate store")
	}
	converter := service.NewFxConverter(rateStore, settingsSvc, log)
	ledger := service.NewBalanceLedger(merchantRepo, balanceRepo, adjustmentRepo, converter, settingsSvc, transactor, log)
	onboardingSvc := service.NewMerchantOnboarding(merchantRepo, ledger, encSvc, log)
	authSvc := service.NewAdminAuth(cfg.Admin, hashSvc, tokenSvc)

	// Reserve-release scheduler
	scheduler := service.NewReserveReleaseScheduler(merchantRepo, ledger, settingsSvc, sweepLock, cfg.Scheduler, log)
	if cfg.Scheduler.Enabled {
		go scheduler.Start(ctx)
		log.Info().Str("release_time", cfg.Scheduler.ReleaseTime).Msg("Reserve-release scheduler started")
	} else {
		log.Info().Msg("Reserve-release scheduler disabled, sweeps run on demand only")
	}

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		MerchantSvc:    onboardingSvc,
		Ledger:         ledger,
		AdjustmentRepo: adjustmentRepo,
		RateStore:      rateStore,
		Converter:      converter,
		Settings:       settingsSvc,
		Sweeper:        scheduler,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	cancel() // stops the scheduler loop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
