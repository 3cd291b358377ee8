package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stridewear/storefront/internal/catalog"
	"github.com/stridewear/storefront/internal/config"
	storehttp "github.com/stridewear/storefront/internal/http"
	"github.com/stridewear/storefront/internal/session"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Catalog database
	repo, err := catalog.NewRepository(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open catalog database", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("catalog database ready", zap.String("path", cfg.DatabasePath))

	// Catalog cache
	ctx := context.Background()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	catalogService := catalog.NewService(repo, catalog.NewRedisCache(redisClient), logger)

	// Per-session cart stores
	sessions := session.NewManager(cfg.CartDataDir, cfg.CartWriteDelay, cfg.SessionIdleTTL, logger)

	router := storehttp.NewRouter(
		sessions,
		storehttp.NewCartHandler(sessions, logger),
		storehttp.NewCatalogHandler(catalogService, logger),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: router,
	}

	go func() {
		logger.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down storefront...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Flush every live cart snapshot before exiting.
	if err := sessions.Close(); err != nil {
		logger.Error("session manager close failed", zap.Error(err))
	}

	logger.Info("storefront stopped")
}
