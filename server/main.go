package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doanvu/image-editing/internal/config"
	"github.com/doanvu/image-editing/internal/http/handlers"
	"github.com/doanvu/image-editing/internal/http/routes"
	"github.com/doanvu/image-editing/internal/services/batch"
	"github.com/doanvu/image-editing/internal/services/editor"
	"github.com/doanvu/image-editing/internal/services/resolver"
	"github.com/doanvu/image-editing/internal/services/storage"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.ImageAPI.APIKey == "" {
		logger.Warn("IMAGE_API_KEY is not set; edit calls will fail authentication")
	}

	// Optional result cache
	var cache *storage.Cache
	if cfg.Redis.Enabled {
		cache = storage.NewCache(cfg.Redis, cfg.Output.CacheDuration, logger)
		defer cache.Close()
	} else {
		logger.Info("Result cache disabled (REDIS_ADDR not set)")
	}

	// Initialize services
	imgResolver := resolver.NewResolver(cfg.Output.MaxInputSize, logger)
	client := editor.NewHTTPClient(cfg.ImageAPI, logger)

	var resultCache editor.ResultCache
	if cache != nil {
		resultCache = cache
	}
	executor := editor.NewExecutor(client, resultCache, cfg.ImageAPI.RequestTimeout, logger)

	materializer := storage.NewMaterializer(cfg.Output.ThumbnailSize, logger)
	scheduler := batch.NewScheduler(cfg.Batch, logger)
	service := batch.NewService(imgResolver, executor, materializer, scheduler, cfg, logger)

	// Initialize handlers
	imageHandler := handlers.NewImageHandler(service, cache, logger, cfg)

	router := routes.NewRouter(imageHandler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
