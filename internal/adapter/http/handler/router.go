package handler

import (
	"merchant-backoffice/internal/adapter/http/middleware"
	redisStore "merchant-backoffice/internal/adapter/storage/redis"
	"merchant-backoffice/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AdminAuth
	MerchantSvc    ports.MerchantOnboarding
	Ledger         ports.BalanceLedger
	AdjustmentRepo ports.AdjustmentRepository
	RateStore      ports.RateStore
	Converter      ports.FxConverter
	Settings       ports.SettingsRegistry
	Sweeper        SweepTrigger
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
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.RateLimitStore != nil {
		r.Use(middleware.RateLimiter(deps.RateLimitStore, deps.Settings, deps.Logger))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// --- JWT-authenticated routes (admin console) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	merchantHandler := NewMerchantHandler(deps.MerchantSvc)
	balanceHandler := NewBalanceHandler(deps.Ledger, deps.AdjustmentRepo)

	merchants := v1.Group("/merchants", jwtAuth)
	{
		merchants.POST("", merchantHandler.Onboard)
		merchants.GET("/:id", merchantHandler.GetMerchant)
		merchants.PUT("/:id/spread", merchantHandler.SetSpread)

		merchants.GET("/:id/balance", balanceHandler.GetBalance)
		merchants.POST("/:id/balance/credit", balanceHandler.CreditReserve)
		merchants.POST("/:id/balance/release", balanceHandler.ReleaseReserve)
		merchants.POST("/:id/balance/debit", balanceHandler.DebitAvailable)
		merchants.POST("/:id/balance/refund", balanceHandler.Refund)
		merchants.POST("/:id/balance/adjust", balanceHandler.Adjust)
		merchants.GET("/:id/adjustments", balanceHandler.ListAdjustments)
	}

	fxHandler := NewFxHandler(deps.RateStore, deps.Converter)
	fx := v1.Group("/fx", jwtAuth)
	{
		fx.GET("/rates/:base/:quote", fxHandler.GetRate)
		fx.POST("/rates", fxHandler.SnapshotRate)
		fx.POST("/convert", fxHandler.Convert)
	}

	adminHandler := NewAdminHandler(deps.Settings, deps.Sweeper)
	admin := v1.Group("/admin", jwtAuth)
	{
		admin.GET("/settings", adminHandler.ListSettings)
		admin.GET("/settings/:key", adminHandler.GetSetting)
		admin.PUT("/settings/:key", adminHandler.UpdateSetting)
		admin.POST("/sweeps", adminHandler.TriggerSweep)
	}

	return r
}
