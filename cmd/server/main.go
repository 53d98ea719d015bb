package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sool-market/service-reservation/internal/application"
	"github.com/sool-market/service-reservation/internal/availability"
	"github.com/sool-market/service-reservation/internal/config"
	reservationEvents "github.com/sool-market/service-reservation/internal/events"
	"github.com/sool-market/service-reservation/internal/handler"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/database"
	"github.com/sool-market/service-reservation/internal/platform/kafka"
	"github.com/sool-market/service-reservation/internal/platform/logger"
	"github.com/sool-market/service-reservation/internal/platform/middleware"
	"github.com/sool-market/service-reservation/internal/repository"
	"github.com/sool-market/service-reservation/internal/session"
	"github.com/sool-market/service-reservation/internal/upstream"
)

const serviceName = "service-reservation"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("upstream", cfg.UpstreamConfig.BaseURL),
	)

	// Connect to the reservation cache
	db, err := database.Connect(cfg.DBConfig.DSN, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", zap.Error(err))
	}
	defer func() { _ = sqlDB.Close() }()

	// Run database migrations
	if cfg.DBConfig.AutoMigrate || !database.IsPostgres(cfg.DBConfig.DSN) {
		if err := db.AutoMigrate(&repository.ReservationModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (auto-migrate)")
	} else if err := database.RunMigrations(cfg.DBConfig.DSN, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Connect to the session store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer func() { _ = redisClient.Close() }()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	pingCancel()
	sessionStore := session.NewRedisStore(redisClient, cfg.SessionConfig.TTL)

	// Initialize token verifier
	verifier := auth.NewJWTVerifier(cfg.JWTConfig.Secret)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize upstream client and availability
	platform := upstream.NewClient(cfg.UpstreamConfig, log)
	resolver := availability.NewResolver(platform, log)
	slotFeed := availability.NewFeed(resolver)

	// Initialize repositories
	reservationRepo := repository.NewGormReservationRepository(db)

	// Initialize application services
	formService := application.NewFormService(
		sessionStore,
		platform,
		resolver,
		slotFeed,
		kafkaProducer,
		cfg.KafkaConfig.EventsTopic,
		log,
	)
	editService := application.NewEditService(
		reservationRepo,
		platform,
		resolver,
		slotFeed,
		kafkaProducer,
		cfg.KafkaConfig.EventsTopic,
		log,
	)
	historyService := application.NewHistoryService(
		reservationRepo,
		platform,
		kafkaProducer,
		cfg.KafkaConfig.EventsTopic,
		log,
	)

	// Initialize and start status event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + serviceName
	statusConsumer := reservationEvents.NewStatusEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		cfg.KafkaConfig.StatusTopic,
		historyService,
		log,
	)
	defer func() { _ = statusConsumer.Close() }()

	go func() {
		log.Info("starting status event consumer", zap.String("topic", cfg.KafkaConfig.StatusTopic))
		if err := statusConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("status event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	formHandler := handler.NewFormHandler(formService)
	reservationHandler := handler.NewReservationHandler(historyService, editService)
	healthHandler := handler.NewHealthHandler(serviceName, map[string]handler.Pinger{
		"database": handler.PingerFunc(sqlDB.PingContext),
		"redis": handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	})

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register routes
	healthHandler.RegisterRoutes(router)
	formHandler.RegisterRoutes(&router.RouterGroup, verifier)
	reservationHandler.RegisterRoutes(&router.RouterGroup, verifier)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamConfig.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
