// Package main runs the status page HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/statio/backend/config"
	"github.com/statio/backend/internal/auth"
	"github.com/statio/backend/internal/incidents"
	"github.com/statio/backend/internal/maintenances"
	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/internal/notify"
	"github.com/statio/backend/internal/organizations"
	"github.com/statio/backend/internal/realtime"
	"github.com/statio/backend/internal/services"
	"github.com/statio/backend/internal/status"
	"github.com/statio/backend/internal/uptime"
	"github.com/statio/backend/internal/users"
	"github.com/statio/backend/internal/validation"
	"github.com/statio/backend/pkg/database"
	"github.com/statio/backend/pkg/observability"
	"github.com/statio/backend/pkg/queue"
	"github.com/statio/backend/pkg/redis"
	"github.com/statio/backend/pkg/response"
	"github.com/statio/backend/pkg/storage"
	"github.com/statio/backend/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := validation.Register(); err != nil {
		logger.Fatal("register validators", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	provider, err := observability.NewProvider(cfg.Metrics.Enabled)
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}
	defer provider.Shutdown(context.Background())

	// Redis is optional: without it broadcasts stay local and no mail is queued.
	var (
		hub   *realtime.Hub
		sinks notify.Multi
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, provider.Metrics)
		if err := hub.StartFanout(ctx, pubsub); err != nil {
			logger.Fatal("realtime fanout", zap.Error(err))
		}
		jobQueue := queue.NewQueue(rdb.Client, logger)
		sinks = append(sinks, notify.NewQueueSink(jobQueue, provider.Metrics, logger))
	} else {
		logger.Warn("redis disabled, notifications will not be queued")
		hub = realtime.NewHub(logger, nil, provider.Metrics)
	}
	defer hub.Close()
	sinks = append(sinks, notify.NewHubSink(hub))

	var logos organizations.LogoStore
	if cfg.AWS.LogosBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			LogosBucket:          cfg.AWS.LogosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			logos = s3Client
		}
	}

	hasher := utils.NewBcryptHasher(0)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireMinutes)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, hasher, jwtService, sinks, cfg.Server.PublicURL, logger)
	authHandler := auth.NewHandler(authService, logger)
	resolver := auth.NewResolver(jwtService, authRepo)

	orgService := organizations.NewService(organizations.NewRepository(pool), logos, logger)
	orgHandler := organizations.NewHandler(orgService)

	userHandler := users.NewHandler(users.NewService(users.NewRepository(pool), hasher, logger))
	serviceHandler := services.NewHandler(services.NewService(services.NewRepository(pool), sinks, logger))
	incidentHandler := incidents.NewHandler(incidents.NewService(incidents.NewRepository(pool), sinks, logger))

	maintenanceService := maintenances.NewService(maintenances.NewRepository(pool), sinks, logger)
	maintenanceHandler := maintenances.NewHandler(maintenanceService)

	statusHandler := status.NewHandler(status.NewService(status.NewRepository(pool), maintenanceService, orgService))
	uptimeHandler := uptime.NewHandler(uptime.NewService(uptime.NewRepository(pool), logger))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	go limiter.Run(ctx, time.Minute)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins()))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(provider.Metrics))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(provider.PrometheusHandler()))
	}

	// Auth (public, rate limited)
	authGroup := router.Group("/auth", limiter.Limit())
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/password-reset/request", authHandler.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	}

	// Public status pages (optional ?org=<slug>)
	public := router.Group("/public")
	{
		public.GET("/status", statusHandler.PublicOverview)
		public.GET("/timeline", statusHandler.PublicTimeline)
		public.GET("/services", statusHandler.PublicServices)
		public.GET("/services/:id", statusHandler.PublicService)
		public.GET("/incidents/active", statusHandler.PublicActiveIncidents)
		public.GET("/incidents/:id", statusHandler.PublicIncident)
		public.GET("/maintenances/active", statusHandler.PublicMaintenances)
		public.GET("/maintenances/upcoming", statusHandler.PublicUpcomingMaintenances)
		public.GET("/maintenances/:id", statusHandler.PublicMaintenance)
	}

	// WebSocket feeds (public; optional organization_id filter)
	router.GET("/ws/:topic", realtime.ServeWs(hub, logger))

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(resolver))
	{
		api.GET("/auth/me", authHandler.Me)
		api.PUT("/auth/me", authHandler.UpdateMe)

		api.GET("/status", statusHandler.Overview)

		api.GET("/users", userHandler.List)
		api.POST("/users", userHandler.Create)
		api.GET("/users/:id", userHandler.Get)
		api.PUT("/users/:id", userHandler.Update)
		api.DELETE("/users/:id", userHandler.Delete)

		api.GET("/organizations", orgHandler.List)
		api.POST("/organizations", orgHandler.Create)
		api.GET("/organizations/:id", orgHandler.Get)
		api.PUT("/organizations/:id", orgHandler.Update)
		api.DELETE("/organizations/:id", orgHandler.Delete)
		api.POST("/organizations/:id/logo-upload-url", orgHandler.CreateLogoUploadURL)
		api.PUT("/organizations/:id/logo", orgHandler.UploadLogo)

		api.GET("/services", serviceHandler.List)
		api.POST("/services", serviceHandler.Create)
		api.GET("/services/:id", serviceHandler.Get)
		api.PUT("/services/:id", serviceHandler.Update)
		api.DELETE("/services/:id", serviceHandler.Delete)

		api.GET("/incidents", incidentHandler.List)
		api.POST("/incidents", incidentHandler.Create)
		api.GET("/incidents/:id", incidentHandler.Get)
		api.PUT("/incidents/:id", incidentHandler.Update)
		api.DELETE("/incidents/:id", incidentHandler.Delete)
		api.GET("/incidents/:id/updates", incidentHandler.ListUpdates)
		api.POST("/incidents/:id/updates", incidentHandler.CreateUpdate)

		api.GET("/maintenances", maintenanceHandler.List)
		api.POST("/maintenances", maintenanceHandler.Create)
		api.GET("/maintenances/:id", maintenanceHandler.Get)
		api.PUT("/maintenances/:id", maintenanceHandler.Update)
		api.DELETE("/maintenances/:id", maintenanceHandler.Delete)

		api.GET("/uptime/overview", uptimeHandler.Overview)
		api.GET("/uptime/services/:id/metrics", uptimeHandler.ServiceMetrics)
		api.POST("/uptime/services/:id/record-metric", uptimeHandler.Record)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
