package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/mess-fee-api/api/swagger"
	"github.com/noah-isme/mess-fee-api/internal/handler"
	"github.com/noah-isme/mess-fee-api/internal/middleware"
	"github.com/noah-isme/mess-fee-api/internal/models"
	"github.com/noah-isme/mess-fee-api/internal/repository"
	"github.com/noah-isme/mess-fee-api/internal/service"
	"github.com/noah-isme/mess-fee-api/pkg/cache"
	"github.com/noah-isme/mess-fee-api/pkg/config"
	"github.com/noah-isme/mess-fee-api/pkg/database"
	"github.com/noah-isme/mess-fee-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mess-fee-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mess-fee-api/pkg/middleware/requestid"
	"github.com/noah-isme/mess-fee-api/pkg/storage"
)

// @title Mess Fee API
// @version 0.1.0
// @description Mess fee management backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// repositories
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	// services
	limiter := service.NewWindowLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
	authService := service.NewAuthService(userRepo, limiter, validate, logr, metrics, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "mess-fee-api",
	})
	settingsService := service.NewSettingsService(settingsRepo, userRepo, cacheService, validate, logr).
		WithDefaultWindow(cfg.Fees.PendingWindowDays)
	studentService := service.NewStudentService(studentRepo, userRepo, validate, logr, cfg.Fees.PendingWindowDays).
		WithSettings(settingsService)
	paymentService := service.NewPaymentService(paymentRepo, studentRepo, userRepo, cacheService, validate, logr, cfg.Fees.PendingWindowDays, cfg.Fees.ProrationDivisor).
		WithSettings(settingsService)
	dashboardService := service.NewDashboardService(dashboardRepo, paymentRepo, cacheService, logr, cfg.Dashboard.CacheTTL, cfg.Dashboard.Enabled)

	var reportService *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportService = service.NewReportService(paymentRepo, store, signer, logr, true)
	}

	scheduler := service.NewRefreshScheduler(studentService, reportService, metrics, logr, service.RefreshSchedulerConfig{
		Enabled:         cfg.Refresh.Enabled,
		Schedule:        cfg.Refresh.Schedule,
		Workers:         cfg.Refresh.Workers,
		Retries:         cfg.Refresh.Retries,
		CleanupInterval: cfg.Reports.CleanupInterval,
		ReportTTL:       cfg.Reports.SignedURLTTL,
	})

	// handlers
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	students := protected.Group("/students")
	students.GET("", studentHandler.List)
	students.GET("/:id", studentHandler.Get)
	students.GET("/:id/payable", paymentHandler.Preview)
	students.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), studentHandler.Create)
	students.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), studentHandler.Update)
	students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), studentHandler.Deactivate)

	payments := protected.Group("/payments")
	payments.GET("", paymentHandler.List)
	payments.GET("/summary", paymentHandler.Summary)
	payments.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), paymentHandler.Record)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard", dashboardHandler.Overview)
	}

	settings := protected.Group("/settings")
	settings.GET("", settingsHandler.Get)
	settings.PUT("", middleware.RequireRoles(models.RoleAdmin), settingsHandler.Update)

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService)
		reports := protected.Group("/reports")
		reports.POST("/ledger",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, "REPORT_GENERATE", "reports"),
			reportHandler.GenerateLedger)
		// downloads carry their own signed token, no JWT required
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to start scheduler", "error", err)
	}
	defer scheduler.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
