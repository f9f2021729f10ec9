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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/di"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/handler"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/metrics"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/service"
	"github.com/prohmpiriya/event-attendance/pkg/config"
	"github.com/prohmpiriya/event-attendance/pkg/database"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/prohmpiriya/event-attendance/pkg/middleware"
	pkgredis "github.com/prohmpiriya/event-attendance/pkg/redis"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.uber.org/zap"
)

const serviceName = "attendance-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Attendance Service...", zap.String("store", cfg.Attendance.StoreDriver))

	ctx := context.Background()

	// Initialize tracing and metrics
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	if err := metrics.Init(); err != nil {
		appLog.Warn("Metrics init failed", zap.Error(err))
	}

	// Initialize database connection
	var db *database.PostgresDB
	if cfg.Attendance.StoreDriver != "memory" {
		if err := cfg.ValidateDatabase(); err != nil {
			appLog.Fatal("Invalid database config", zap.Error(err))
		}
		db, err = database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   time.Second,
			EnableTracing:   cfg.OTel.Enabled,
		})
		if err != nil {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		defer db.Close()
		appLog.Info("Database connected")

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx, repository.Schema); err != nil {
				appLog.Fatal("Schema migration failed", zap.Error(err))
			}
			appLog.Info("Schema migrated")
		}
	}

	// Redis is optional: without it the event cache and idempotency keys are off
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Warn("Redis connection failed, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Initialize Kafka job publisher
	var jobPublisher service.JobPublisher
	jobPublisher, err = service.NewKafkaJobPublisher(ctx, &service.JobPublisherConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.JobsTopic,
		ServiceName: serviceName,
		ClientID:    cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn("Kafka connection failed, using no-op job publisher", zap.Error(err))
		jobPublisher = service.NewNoOpJobPublisher()
	} else {
		appLog.Info("Kafka job publisher connected")
	}
	defer jobPublisher.Close()

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:            db,
		Redis:         redisClient,
		EventCacheTTL: cfg.Attendance.EventCacheTTL,
		JobPublisher:  jobPublisher,
		Logger:        appLog,
		EventConfig:   &service.EventServiceConfig{CodeLength: cfg.Attendance.CodeLength},
		RegistrationConfig: &service.RegistrationServiceConfig{
			PasswordLength: cfg.Attendance.PasswordLength,
		},
		AttendanceConfig: &service.AttendanceServiceConfig{Location: cfg.Attendance.Location()},
	})

	// Pre-load Lua scripts into Redis
	if container.EventCache != nil {
		if err := container.EventCache.LoadScripts(ctx); err != nil {
			appLog.Warn("Failed to pre-load Lua scripts", zap.Error(err))
		}
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	router.Use(telemetry.TracingMiddleware(serviceName))
	router.Use(corsMiddleware(cfg.Server.CORSOrigins))

	routeCfg := &handler.RouteConfig{
		Auth: middleware.JWTMiddleware(&middleware.JWTConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
		}),
	}
	if redisClient != nil {
		routeCfg.Idempotency = middleware.IdempotencyMiddleware(middleware.DefaultIdempotencyConfig(redisClient.Client()))
	}
	handler.RegisterRoutes(router, container.Handlers, routeCfg)

	router.GET("/api/v1/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": cfg.App.Version,
			"service": serviceName,
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Attendance Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	appLog.Info("Server exited gracefully")
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
