package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inkfest/backend/config"
	"github.com/inkfest/backend/internal/notify"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/internal/store/memory"
	pgstore "github.com/inkfest/backend/internal/store/postgres"
	"github.com/inkfest/backend/internal/worker"
	"github.com/inkfest/backend/pkg/database"
	"github.com/inkfest/backend/pkg/queue"
	redisclient "github.com/inkfest/backend/pkg/redis"
	"github.com/inkfest/backend/pkg/storage"
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
		st = pgstore.New(pool)
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; the worker sees no server data in this mode")
		st = memory.New()
	}

	// The worker is pointless without Redis, so unlike the server it requires it.
	rdb, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	jobQueue := queue.NewQueue(rdb, logger)

	mailer := notify.NewMailer(cfg.Email, logger)

	var s3 *storage.S3
	if cfg.AWS.Region != "" {
		s3, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AgreementsBucket:     cfg.AWS.AgreementsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("failed to create s3 client", zap.Error(err))
		}
	} else {
		logger.Warn("AWS_REGION not set, agreement archiving disabled")
	}

	processor := worker.NewProcessor(st, mailer, s3, jobQueue, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutdown signal received")
		cancel()
	}()

	logger.Info("worker starting")
	processor.Run(ctx)
	logger.Info("worker stopped")
}
