package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/osinthub/search-api/internal/config"
	"github.com/osinthub/search-api/internal/handler"
	"github.com/osinthub/search-api/internal/handler/middleware"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/payment"
	"github.com/osinthub/search-api/internal/ratelimit"
	"github.com/osinthub/search-api/internal/search"
	"github.com/osinthub/search-api/internal/service"
	"github.com/osinthub/search-api/internal/storage/memstorage"
	"github.com/osinthub/search-api/internal/storage/postgres"
	"github.com/osinthub/search-api/internal/storage/redis"
	"github.com/osinthub/search-api/internal/worker"
	"github.com/osinthub/search-api/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool, appLogger)
	paymentRepo := postgres.NewPaymentRepository(dbPool, appLogger)
	searchLogRepo := postgres.NewSearchLogRepository(dbPool, appLogger)
	adminRepo := memstorage.NewUserRepository(cfg.Admin.Username, cfg.Admin.PasswordHash)

	authService, err := service.NewAuthService(appCtx, &cfg.OIDC, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize OIDC verifier: %v", err)
	}
	adminAuthService, err := service.NewAdminAuthService(adminRepo, &cfg.Admin, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize admin auth: %v", err)
	}

	searchEngine := search.NewClient(&cfg.Elasticsearch, appLogger)
	paypalClient := payment.NewPayPalClient(&cfg.PayPal, appLogger)

	searchService := service.NewSearchService(apiKeyRepo, searchLogRepo, searchEngine, appLogger)
	paymentService := service.NewPaymentService(paymentRepo, apiKeyRepo, paypalClient, cfg.Crypto.Wallet, appLogger)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, appLogger)

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, appLogger)
	searchHandler := handler.NewSearchHandler(searchService, appLogger)
	paymentHandler := handler.NewPaymentHandler(paymentService, appLogger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, appLogger)
	adminHandler := handler.NewAdminHandler(adminAuthService, paymentService, apiKeyService, appLogger)

	searchLimiter := ratelimit.NewLimiter(ratelimit.Config{MaxRequests: cfg.RateLimit.SearchMax, Window: cfg.RateLimit.Window}, appLogger)
	orderLimiter := ratelimit.NewLimiter(ratelimit.Config{MaxRequests: cfg.RateLimit.OrderMax, Window: cfg.RateLimit.Window}, appLogger)
	captureLimiter := ratelimit.NewLimiter(ratelimit.Config{MaxRequests: cfg.RateLimit.CaptureMax, Window: cfg.RateLimit.Window}, appLogger)

	authMiddleware := middleware.AuthMiddleware(authService, appLogger)
	adminAuthMiddleware := middleware.AdminAuthMiddleware(adminAuthService, appLogger)
	errorMiddleware := middleware.ErrorHandlerMiddleware(appLogger)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))

	router.Use(middleware.CORSMiddleware())
	router.Use(errorMiddleware)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		searchRoutes := apiV1.Group("/search")
		searchRoutes.Use(middleware.RateLimitMiddleware(searchLimiter, appLogger), authMiddleware)
		{
			searchRoutes.POST("", searchHandler.Search)
			searchRoutes.GET("/history", searchHandler.History)
		}

		orderRoutes := apiV1.Group("/orders")
		{
			orderRoutes.POST("", middleware.RateLimitMiddleware(orderLimiter, appLogger), authMiddleware, paymentHandler.CreateOrder)
			orderRoutes.POST("/capture", middleware.RateLimitMiddleware(captureLimiter, appLogger), authMiddleware, paymentHandler.CaptureOrder)
		}

		paymentRoutes := apiV1.Group("/payments")
		paymentRoutes.Use(authMiddleware)
		{
			paymentRoutes.POST("/manual", paymentHandler.CreateManualPayment)
		}

		apiKeyRoutes := apiV1.Group("/apikeys")
		apiKeyRoutes.Use(authMiddleware)
		{
			apiKeyRoutes.GET("/me", apiKeyHandler.CurrentKey)
		}

		adminRoutes := apiV1.Group("/admin")
		{
			adminRoutes.POST("/login", adminHandler.Login)

			adminRoutes.Use(adminAuthMiddleware)

			adminRoutes.GET("/payments", adminHandler.ListPayments)
			adminRoutes.POST("/payments/:transactionId/confirm", adminHandler.ConfirmManualPayment)
			adminRoutes.POST("/apikeys", adminHandler.GrantKey)
			adminRoutes.PATCH("/apikeys/:id/status", adminHandler.UpdateKeyStatus)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, paymentRepo, appLogger); err != nil {
			sugarLogger.Error("Asynq worker failed", zap.Error(err))
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else if errors.Is(waitErr, http.ErrServerClosed) {
			sugarLogger.Info("Shutdown reason: HTTP server closed normally.")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
