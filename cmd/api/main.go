package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-deposit-gateway/config"
	httpHandler "crypto-deposit-gateway/internal/adapter/http/handler"
	"crypto-deposit-gateway/internal/adapter/processor"
	pgStorage "crypto-deposit-gateway/internal/adapter/storage/postgres"
	redisStorage "crypto-deposit-gateway/internal/adapter/storage/redis"
	"crypto-deposit-gateway/internal/core/ports"
	"crypto-deposit-gateway/internal/service"
	"crypto-deposit-gateway/pkg/logger"

	"github.com/shopspring/decimal"
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
		Msg("Starting Crypto Deposit Gateway")

	minAmount, err := decimal.NewFromString(cfg.Deposit.MinAmountUSD)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid deposit.min_amount_usd")
	}
	maxAmount, err := decimal.NewFromString(cfg.Deposit.MaxAmountUSD)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid deposit.max_amount_usd")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pgxPool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pgxPool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pgxPool)
	depositRepo := pgStorage.NewDepositRepo(pgxPool)
	transactor := pgStorage.NewTransactor(pgxPool)

	// Initialize core services
	sigSvc := service.NewIPNSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	processorClient := processor.NewClient(
		cfg.Processor.BaseURL,
		cfg.Processor.APIKey,
		&http.Client{Timeout: cfg.Processor.Timeout},
	)

	// Initialize business services
	depositSvc := service.NewDepositService(
		depositRepo,
		walletRepo,
		transactor,
		processorClient,
		sigSvc,
		service.DepositOptions{
			MinAmountUSD:  minAmount,
			MaxAmountUSD:  maxAmount,
			PayCurrencies: cfg.Deposit.PayCurrencies,
			IPNSecret:     cfg.Processor.IPNSecret,
			CallbackURL:   cfg.Processor.CallbackURL,
			SuccessURL:    cfg.Processor.SuccessURL,
			CancelURL:     cfg.Processor.CancelURL,
		},
		log,
	)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pgxPool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DepositSvc:     depositSvc,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
