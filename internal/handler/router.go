package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/middleware"
	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
	"github.com/noah-isme/healthcare-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/healthcare-admin-api/pkg/middleware/cors"
	"github.com/noah-isme/healthcare-admin-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/healthcare-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/healthcare-admin-api/pkg/response"
)

// RouterConfig carries everything NewRouter registers.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	TrustedProxies []string
	EnableDocs     bool

	Logger       *zap.Logger
	Metrics      middleware.RequestObserver
	Tokens       middleware.TokenValidator
	Audit        middleware.AuditWriter
	LoginLimiter *ratelimit.Limiter

	Auth        *AuthHandler
	Clients     *ClientHandler
	Programs    *ProgramHandler
	Enrollments *EnrollmentHandler
	Analytics   *AnalyticsHandler
	Exports     *ExportHandler
	Ops         *MetricsHandler
}

// NewRouter builds the gin engine with every route registered up front.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	// Forwarding headers are honoured only from these peers; nil trusts none.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		cfg.Logger.Warn("invalid trusted proxies, forwarding headers ignored", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, appErrors.New("METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "method not allowed"))
	})

	if cfg.Ops != nil {
		r.GET("/health", cfg.Ops.Health)
		r.GET("/ready", cfg.Ops.Ready)
		r.GET("/metrics", cfg.Ops.Prometheus)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authenticated := middleware.JWT(cfg.Tokens)

	admin := api.Group("/admin")
	{
		login := []gin.HandlerFunc{cfg.Auth.Login}
		if cfg.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{cfg.LoginLimiter.Middleware()}, login...)
		}
		admin.POST("/login", login...)
		admin.POST("/token/refresh", cfg.Auth.Refresh)
		admin.POST("/logout", authenticated, cfg.Auth.Logout)
		admin.GET("/me", authenticated, middleware.RequireAdmin(), cfg.Auth.Me)
	}

	secured := api.Group("")
	secured.Use(authenticated, middleware.RequireRoles(models.AdminRoles...))

	clients := secured.Group("/clients")
	clients.Use(middleware.Audit(cfg.Audit, models.AuditResourceClient, cfg.Logger))
	{
		clients.GET("", cfg.Clients.List)
		clients.POST("", cfg.Clients.Create)
		clients.GET("/search", cfg.Clients.Search)
		clients.GET("/:id", cfg.Clients.Get)
		clients.PUT("/:id", cfg.Clients.Update)
		clients.PATCH("/:id", cfg.Clients.Patch)
		clients.DELETE("/:id", cfg.Clients.Delete)
	}

	programs := secured.Group("/programs")
	programs.Use(middleware.Audit(cfg.Audit, models.AuditResourceProgram, cfg.Logger))
	{
		programs.GET("", cfg.Programs.List)
		programs.POST("", cfg.Programs.Create)
		programs.GET("/:id", cfg.Programs.Get)
		programs.PUT("/:id", cfg.Programs.Update)
		programs.PATCH("/:id", cfg.Programs.Patch)
		programs.DELETE("/:id", cfg.Programs.Delete)
	}

	enrollments := secured.Group("/enrollments")
	enrollments.Use(middleware.Audit(cfg.Audit, models.AuditResourceEnrollment, cfg.Logger))
	{
		enrollments.GET("", cfg.Enrollments.List)
		enrollments.POST("", cfg.Enrollments.Create)
		enrollments.GET("/:id", cfg.Enrollments.Get)
		enrollments.DELETE("/:id", cfg.Enrollments.Delete)
	}

	secured.GET("/analytics/summary", cfg.Analytics.Summary)
	secured.GET("/exports/clients", cfg.Exports.Clients)
	secured.GET("/exports/enrollments", cfg.Exports.Enrollments)

	return r
}
