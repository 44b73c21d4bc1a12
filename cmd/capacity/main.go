package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/capacity/internal/capacity/auth"
	"github.com/gartstein/capacity/internal/capacity/config"
	"github.com/gartstein/capacity/internal/capacity/controller"
	"github.com/gartstein/capacity/internal/capacity/db"
	"github.com/gartstein/capacity/internal/capacity/events"
	"github.com/gartstein/capacity/internal/capacity/handlers"
	"github.com/gartstein/capacity/internal/capacity/jobs"
	"github.com/gartstein/capacity/internal/capacity/storage"
	"github.com/gartstein/capacity/internal/pkg/logging"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	files, err := storage.New(ctx, cfg.Storage, repo)
	if err != nil {
		logger.Fatal("Failed to initialize file store", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	enqueuer := jobs.NewEnqueuer(rdb, cfg.Jobs)

	notifier, closeNotifier := initNotifier(cfg, logger)
	defer closeNotifier()

	capacitySvc := controller.NewCapacityService(repo, repo, notifier, logger)
	ingestionSvc := controller.NewIngestionService(repo, repo, files, enqueuer, notifier, cfg.MaxUploadSize, logger)

	worker := jobs.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Jobs, logger)
	if err := worker.Start(jobs.NewMux(jobs.NewHandler(ingestionSvc, logger))); err != nil {
		logger.Fatal("Failed to start ingestion worker", zap.Error(err))
	}

	janitor, err := jobs.NewJanitor(ingestionSvc, cfg.Jobs, logger)
	if err != nil {
		logger.Fatal("Failed to schedule janitor", zap.Error(err))
	}
	janitor.Start()

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret, handlers.MethodRoles)
	server := handlers.NewServer(cfg.GRPCPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))
	server.RegisterGRPCHandler(handlers.NewCapacityHandler(capacitySvc, ingestionSvc, logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("gRPC server failed", zap.Error(err))
	}

	server.Stop(cfg.ShutdownTimeout)
	janitor.Stop()
	worker.Shutdown()
	if err := enqueuer.Close(); err != nil {
		logger.Warn("Failed to close task client", zap.Error(err))
	}
	logger.Info("Capacity service stopped")
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("CAPACITY_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}
	return config.Load(path)
}

// connectDatabase retries the initial connection until cfg.DB.ConnectTimeout
// elapses, so the service can start alongside its database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.DB.ConnectTimeout

	return backoff.RetryNotifyWithData(func() (*db.Repository, error) {
		return db.NewRepository(&db.Config{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			DBName:   cfg.DB.Name,
			SSLMode:  cfg.DB.SSLMode,
		})
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("retry_in", next))
	})
}

// initNotifier returns the Kafka producer, or a no-op notifier when no
// brokers are configured.
func initNotifier(cfg *config.Config, logger *zap.Logger) (controller.Notifier, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Warn("No Kafka brokers configured, events are discarded")
		return events.Nop{}, func() {}
	}
	if err := events.EnsureTopic(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions, logger); err != nil {
		logger.Warn("Failed to ensure Kafka topic", zap.Error(err))
	}
	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	return producer, producer.Close
}
