package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/metrics"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/worker"
	"github.com/prohmpiriya/event-attendance/pkg/config"
	"github.com/prohmpiriya/event-attendance/pkg/database"
	"github.com/prohmpiriya/event-attendance/pkg/kafka"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-attendance/pkg/redis"
	"github.com/prohmpiriya/event-attendance/pkg/retry"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.uber.org/zap"
)

const serviceName = "attendance-job-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	if cfg.Attendance.StoreDriver == "memory" {
		appLog.Fatal("Job worker needs a shared store, set ATTENDANCE_STORE_DRIVER=postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry init failed, tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	if err := metrics.Init(); err != nil {
		appLog.Warn("Metrics init failed", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      5,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.ConsumerGroup,
		Topics:        []string{cfg.Kafka.JobsTopic},
		ClientID:      cfg.Kafka.ClientID + "-worker",
		MaxRetries:    5,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Kafka consumer failed", zap.Error(err))
	}
	defer consumer.Close()

	var dlq worker.DLQProducer
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      cfg.Kafka.ClientID + "-dlq",
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Warn("DLQ producer unavailable, failed jobs will only be logged", zap.Error(err))
	} else {
		defer producer.Close()
		dlq = producer
	}

	pool := db.Pool()

	// Deletes go through the API's event cache so a deleted event stops resolving at once
	var events repository.EventRepository = repository.NewPostgresEventRepository(pool)
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      5,
		MinIdleConns:  1,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Warn("Redis connection failed, event cache will not be invalidated", zap.Error(err))
	} else {
		defer redisClient.Close()
		cache := repository.NewCachedEventRepository(events, redisClient, cfg.Attendance.EventCacheTTL, appLog)
		if err := cache.LoadScripts(ctx); err != nil {
			appLog.Warn("Failed to pre-load Lua scripts", zap.Error(err))
		}
		events = cache
	}

	w := worker.NewJobWorker(&worker.JobWorkerConfig{
		Topic:       cfg.Kafka.JobsTopic,
		ServiceName: serviceName,
		Retry:       retry.DefaultConfig(),
	},
		consumer,
		dlq,
		events,
		repository.NewPostgresRegistrationRepository(pool),
		worker.NewLogMailer(appLog),
		appLog,
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLog.Info("Shutting down job worker...")
		cancel()
	}()

	if err := w.Run(ctx); err != nil {
		appLog.Error("Job worker stopped", zap.Error(err))
	}
	appLog.Info("Job worker exited")
}
