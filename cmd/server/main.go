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

	"github.com/inkfest/backend/config"
	"github.com/inkfest/backend/internal/applications"
	"github.com/inkfest/backend/internal/auth"
	"github.com/inkfest/backend/internal/events"
	"github.com/inkfest/backend/internal/middleware"
	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/realtime"
	"github.com/inkfest/backend/internal/registration"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/internal/store/memory"
	pgstore "github.com/inkfest/backend/internal/store/postgres"
	"github.com/inkfest/backend/pkg/database"
	"github.com/inkfest/backend/pkg/queue"
	redisclient "github.com/inkfest/backend/pkg/redis"
	"github.com/inkfest/backend/pkg/response"
	awsstorage "github.com/inkfest/backend/pkg/storage"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		st = pgstore.New(pool)
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, data will not survive restart")
		st = memory.New()
	}

	// Redis backs the job queue and dashboard pub/sub. The service degrades
	// without it: emails and archives are skipped, broadcasts stay local.
	var (
		jobQueue *queue.Queue
		pubsub   *realtime.RedisPubSub
	)
	rdb, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, job queue and cross-instance broadcast disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		jobQueue = queue.NewQueue(rdb, logger)
		pubsub = realtime.NewRedisPubSub(rdb, logger)
	}

	var s3 *awsstorage.S3
	if cfg.AWS.Region != "" {
		s3, err = awsstorage.NewS3(ctx, awsstorage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AgreementsBucket:     cfg.AWS.AgreementsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("failed to create s3 client", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	var hub *realtime.Hub
	if pubsub != nil {
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	registrationSvc := registration.NewService(st, jobQueue, hub, logger)
	applicationsSvc := applications.NewService(st, jobQueue, hub, cfg.Server.PublicBaseURL, logger)

	authHandler := auth.NewHandler(st, jwtService, logger)
	eventsHandler := events.NewHandler(st, s3, logger)
	applicationsHandler := applications.NewHandler(applicationsSvc, logger)
	registrationHandler := registration.NewHandler(registrationSvc, logger)

	jwtValidate := func(token string) (string, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "storage": cfg.Storage.Driver})
	})

	// Public surface: auth, the registration flow, application intake.
	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)
	router.GET("/registration/:token", registrationHandler.Get)
	router.POST("/registration/complete", registrationHandler.Complete)
	router.POST("/events/:id/applications", applicationsHandler.Submit)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	// Admin surface.
	api := router.Group("/")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole(string(models.RoleAdmin)), authHandler.List)

		api.POST("/events", middleware.RequireRole(string(models.RoleAdmin), string(models.RoleOrganizer)), eventsHandler.Create)
		api.GET("/events", eventsHandler.List)
		api.GET("/events/:id", eventsHandler.GetByID)
		api.PATCH("/events/:id", middleware.RequireRole(string(models.RoleAdmin), string(models.RoleOrganizer)), eventsHandler.Update)
		api.DELETE("/events/:id", middleware.RequireRole(string(models.RoleAdmin)), eventsHandler.Delete)
		api.PUT("/events/:id/requirements", middleware.RequireRole(string(models.RoleAdmin), string(models.RoleOrganizer)), eventsHandler.UpsertRequirements)
		api.PUT("/events/:id/payment-settings", middleware.RequireRole(string(models.RoleAdmin), string(models.RoleOrganizer)), eventsHandler.UpsertPaymentSettings)

		api.GET("/events/:id/applications", applicationsHandler.ListByEvent)
		api.POST("/applications/:id/approve", middleware.RequireRole(string(models.RoleAdmin), string(models.RoleOrganizer)), applicationsHandler.Approve)
		api.POST("/applications/:id/reject", middleware.RequireRole(string(models.RoleAdmin), string(models.RoleOrganizer)), applicationsHandler.Reject)

		api.GET("/events/:id/tickets", eventsHandler.ListTickets)
		api.GET("/events/:id/registrations", eventsHandler.ListSubmissions)
		api.GET("/registrations/:id/agreement", middleware.RequireRole(string(models.RoleAdmin), string(models.RoleOrganizer)), eventsHandler.AgreementURL)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
