package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/handlers"
	"github.com/mmdatafocus/inventory_backend/middlewares"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const lockTTL = 30 * time.Second

func corsConfig(cfg config.Config) cors.Config {
	corsConfig := cors.DefaultConfig()
	// In production only the configured origins are allowed; an empty list denies all.
	if cfg.Production {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		if corsConfig.AllowOrigins == nil {
			corsConfig.AllowOrigins = []string{}
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization",
		middlewares.HeaderBusinessId, middlewares.HeaderUserId, middlewares.HeaderCorrelationId)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.HeaderCorrelationId)
	corsConfig.AllowCredentials = true
	return corsConfig
}

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// SIGTERM starts a graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server first; /api answers 503 until the engine is ready.
	srv := handlers.NewServer(logger)
	extra := []gin.HandlerFunc{cors.New(corsConfig(cfg))}

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	var rateLimitClient *redis.Client
	if cfg.RateLimitEnabled {
		rateLimitClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		rl := middlewares.NewRateLimiter(rateLimitClient, cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
		extra = append(extra, rl.RateLimitMiddleware)
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(extra...),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- httpServer.ListenAndServe()
	}()

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Fatal(err.Error())
	}
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate DDL can block tables; large deployments run it as a separate job.
	if !cfg.SkipMigrations {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	if cfg.DBDriver == "mysql" {
		// FOR UPDATE on layer rows only needs READ COMMITTED.
		for attempt := 1; ; attempt++ {
			err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
			if err == nil {
				break
			}
			sleep := time.Second * time.Duration(1<<min(attempt, 5))
			if sleep > 30*time.Second {
				sleep = 30 * time.Second
			}
			logger.WithFields(logrus.Fields{
				"field":   "database",
				"attempt": attempt,
			}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
			time.Sleep(sleep)
		}
	}

	// Several instances need the Redis locker; one instance can use in-process locks.
	var locker workflow.Locker = workflow.NewLocalLocker()
	if cfg.RedisAddress != "" {
		config.ConnectRedisWithRetry(sigCtx, cfg.RedisAddress)
		if lockClient := config.GetRedisLock(); lockClient != nil {
			locker = workflow.NewRedisLocker(lockClient, lockTTL)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "locker"}).Warn("REDIS_ADDRESS not set; using in-process stock locks")
	}

	srv.SetEngine(workflow.NewEngine(db, logger, locker, workflow.Options{
		ShortagePolicy: workflow.ShortagePolicy(cfg.ShortagePolicy),
	}))

	logger.WithFields(logrus.Fields{
		"info":            "Connection Established",
		"port":            cfg.Port,
		"db_driver":       cfg.DBDriver,
		"shortage_policy": cfg.ShortagePolicy,
	}).Info("inventory api ready")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
	if rateLimitClient != nil {
		_ = rateLimitClient.Close()
	}
}
