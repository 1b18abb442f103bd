package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nDmitry/wpblog/internal/api/rest"
	"github.com/nDmitry/wpblog/internal/app"
	"github.com/nDmitry/wpblog/internal/article"
	"github.com/nDmitry/wpblog/internal/blog"
	"github.com/nDmitry/wpblog/internal/cache"
	"github.com/nDmitry/wpblog/internal/config"
	"github.com/nDmitry/wpblog/internal/feed"
	"github.com/nDmitry/wpblog/internal/sanitize"
	"github.com/nDmitry/wpblog/internal/wordpress"
)

func main() {
	logger := app.Logger()
	slog.SetDefault(logger)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received first shutdown signal, starting graceful shutdown...")
		cancel()

		// If we receive a second signal, exit immediately
		<-sigChan
		logger.Info("Received second shutdown signal, exiting immediately...")
		os.Exit(1)
	}()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))

	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	c, err := newCache(ctx, cfg.RedisAddr)

	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	defer c.Close()

	service := blog.NewService(
		wordpress.NewClient(cfg.APIBaseURL, cfg.PerPage),
		c,
		article.NewNormalizer(cfg.DateLocale, cfg.Image),
		sanitize.New(),
		blog.Options{
			TTL:             time.Duration(cfg.CacheTTLMinutes) * time.Minute,
			CategoryAliases: cfg.CategoryAliases,
		},
	)

	generator := feed.NewGenerator(cfg.Site)

	// Initialize and run the HTTP server
	server := rest.NewServer(service, generator, cfg)

	if err := server.Run(ctx); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited gracefully")
}

// newCache connects to Redis when an address is configured and
// falls back to an in-process cache otherwise.
func newCache(ctx context.Context, redisAddr string) (cache.Cache, error) {
	if redisAddr == "" {
		app.Logger().Info("REDIS_HOST is not set, using in-memory cache")
		return cache.NewMemoryCache(), nil
	}

	return cache.NewRedisClient(ctx, redisAddr)
}
