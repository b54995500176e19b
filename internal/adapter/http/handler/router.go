package handler

import (
	"crypto-deposit-gateway/internal/adapter/http/middleware"
	redisStore "crypto-deposit-gateway/internal/adapter/storage/redis"
	"crypto-deposit-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DepositSvc     ports.DepositService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Processor callbacks (HMAC-authenticated in the handler, no rate
	// limit: throttling redeliveries would delay credits) ---
	webhookHandler := NewWebhookHandler(deps.DepositSvc, deps.Logger)
	v1.POST("/webhooks/nowpayments", webhookHandler.HandleNOWPayments)

	// --- JWT-authenticated routes (player wallet) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.DepositSvc)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.POST("/create-crypto-payment", rl("deposit_create"), walletHandler.CreateCryptoPayment)
		wallet.GET("/balance", rl("wallet_read"), walletHandler.GetBalance)
		wallet.GET("/crypto-transactions", rl("wallet_read"), walletHandler.ListTransactions)
	}

	return r
}
