package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/healthcare-admin-api/api/swagger"
	"github.com/noah-isme/healthcare-admin-api/internal/handler"
	"github.com/noah-isme/healthcare-admin-api/internal/repository"
	"github.com/noah-isme/healthcare-admin-api/internal/service"
	"github.com/noah-isme/healthcare-admin-api/pkg/cache"
	"github.com/noah-isme/healthcare-admin-api/pkg/config"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	"github.com/noah-isme/healthcare-admin-api/pkg/export"
	"github.com/noah-isme/healthcare-admin-api/pkg/jobs"
	"github.com/noah-isme/healthcare-admin-api/pkg/logger"
	"github.com/noah-isme/healthcare-admin-api/pkg/mailer"
	"github.com/noah-isme/healthcare-admin-api/pkg/middleware/ratelimit"
)

// @title Healthcare Admin API
// @version 1.0.0
// @description Administrative backend for health program enrollment
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var (
		cacheRepo  *repository.CacheRepository
		cacheStore service.CacheRepository
	)
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, "healthcare")
			cacheStore = cacheRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, cfg.Analytics.CacheTTL, logr, cacheStore != nil)

	validate := service.NewValidator()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	clientRepo := repository.NewClientRepository(db)
	programRepo := repository.NewProgramRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	notifier := service.NewLoginNotifier(mailer.New(cfg.SMTP, logr), metrics, logr)
	queue := jobs.NewQueue("login-notifications", notifier.Deliver, jobs.QueueConfig{
		Workers:    cfg.Notification.Workers,
		MaxRetries: cfg.Notification.Retries,
		RetryDelay: cfg.Notification.RetryDelay,
		Logger:     logr,
		OnGiveUp:   notifier.GiveUp,
	})
	notifier.Bind(queue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	authSvc := service.NewAuthService(userRepo, auditRepo, notifier, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	clientSvc := service.NewClientService(clientRepo, enrollmentRepo, cacheSvc, validate, logr)
	programSvc := service.NewProgramService(programRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, cacheSvc, metrics, validate, logr, service.EnrollmentConfig{
		IDAttempts: cfg.Enrollment.IDAttempts,
	})
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(analyticsRepo, export.NewExporter(), logr)

	checks := map[string]handler.Pinger{"database": db}
	if cacheRepo != nil {
		checks["cache"] = handler.PingFunc(cacheRepo.Ping)
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
		Audit:          auditRepo,
		LoginLimiter:   ratelimit.New(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst),
		Auth:           handler.NewAuthHandler(authSvc),
		Clients:        handler.NewClientHandler(clientSvc),
		Programs:       handler.NewProgramHandler(programSvc),
		Enrollments:    handler.NewEnrollmentHandler(enrollmentSvc),
		Analytics:      handler.NewAnalyticsHandler(analyticsSvc),
		Exports:        handler.NewExportHandler(exportSvc),
		Ops:            handler.NewMetricsHandler(metrics.Handler(), checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	cancel()
	queue.Stop()
}
