package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crudkit/sampleapi/internal/config"
	"github.com/crudkit/sampleapi/internal/handler"
	"github.com/crudkit/sampleapi/internal/middleware"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/crudkit/sampleapi/internal/repository"
	"github.com/crudkit/sampleapi/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.InitWithOptions(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logger.Sync()

	if cfg.Source != "" {
		logger.Info("📄 Loaded config", "file", cfg.Source)
	}
	if cfg.UsesDefaultSecret() {
		logger.Warn("⚠️ auth.jwt_secret is the built-in development secret, set SAMPLEAPI_AUTH_JWT_SECRET")
	}

	// 3. Initialize Persistence
	// Idempotency + Stats Cache (Redis > Memory)
	var idempotencyStore middleware.IdempotencyStore
	var statsCache service.StatsCache
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			defer redisClient.Close()
			idempotencyStore = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
			statsCache = repository.NewRedisStatsCache(redisClient, time.Duration(cfg.Redis.StatsTTLSeconds)*time.Second)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if idempotencyStore == nil {
		idempotencyStore = middleware.NewInMemIdempotencyStore(time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second)
	}

	// Records (Postgres > Memory)
	var (
		sampleRepo service.SampleRepo
		apiLogRepo service.APILogRepo
		userRepo   service.UserRepo
	)
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("✅ Connected to PostgreSQL")
			sampleRepo = repository.NewPostgresSampleRepo(db)
			apiLogRepo = repository.NewPostgresAPILogRepo(db)
			userRepo = repository.NewPostgresUserRepo(db)
		} else {
			logger.Error("⚠️ Failed to connect to DB, records will be kept in memory", "error", err)
		}
	}
	if sampleRepo == nil {
		logger.Warn("⚠️ Using in-memory stores, data is lost on restart")
		sampleRepo = repository.NewMemorySampleRepo()
		apiLogRepo = repository.NewMemoryAPILogRepo()
		userRepo = repository.NewMemoryUserRepo()
	}

	// 4. Initialize Core Services
	authSvc, err := service.NewAuthService(cfg, userRepo)
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}

	// 5. Setup Router
	gin.SetMode(cfg.Server.Mode)
	binding.Validator = &middleware.DefaultValidator{}

	r := handler.NewRouter(handler.Deps{
		Config:      cfg,
		Samples:     service.NewSampleService(sampleRepo),
		APILogs:     service.NewAPILogService(apiLogRepo, statsCache),
		Retention:   service.NewRetentionService(apiLogRepo, statsCache),
		Auth:        authSvc,
		Idempotency: idempotencyStore,
		Limiters:    service.NewLimiterRegistry(cfg.Auth.LoginRatePerSecond, cfg.Auth.LoginBurst),
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("🚀 sampleapi started", "port", cfg.Server.Port, "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exiting")
}
