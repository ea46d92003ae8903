package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playops-hq/playops-engine/internal/ai"
	"github.com/playops-hq/playops-engine/internal/api"
	"github.com/playops-hq/playops-engine/internal/blob"
	"github.com/playops-hq/playops-engine/internal/cache"
	"github.com/playops-hq/playops-engine/internal/catalog"
	"github.com/playops-hq/playops-engine/internal/cleanup"
	"github.com/playops-hq/playops-engine/internal/collab"
	"github.com/playops-hq/playops-engine/internal/config"
	"github.com/playops-hq/playops-engine/internal/session"
	"github.com/playops-hq/playops-engine/internal/storage"
	"github.com/playops-hq/playops-engine/migrations"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting playops-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations")
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, migrations.FS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN: cfg.Database.DSN,
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Initialize collaborator registry for readiness probes
	registry := collab.NewRegistry()

	postgresProvider, err := collab.NewPostgresProvider(cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to create postgres provider", "error", err)
		os.Exit(1)
	}
	registry.Register("postgres", postgresProvider)

	redisProvider, err := collab.NewRedisProvider(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to create redis provider", "error", err)
		os.Exit(1)
	}
	registry.Register("redis", redisProvider)

	// Initialize the runtime cache and leaderboard
	runtimeCache, err := cache.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Load the competency catalog
	catalogLoader := catalog.NewLoader()
	if err := catalogLoader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load catalog from dir", "dir", cfg.Catalog.Dir, "error", err)
	}

	// Initialize session manager
	manager := session.NewManager(repo, catalogLoader, runtimeCache)

	// Optional collaborators
	var aiClient *ai.Client
	if cfg.AI.BaseURL != "" {
		aiClient = ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, ai.WithModel(cfg.AI.Model))
	}
	var blobClient *blob.Client
	if cfg.Blob.BaseURL != "" {
		blobClient = blob.NewClient(cfg.Blob.BaseURL, cfg.Blob.APIKey)
	}

	// Initialize cleanup worker
	cleaner := cleanup.NewCleaner(manager, cfg.Cleanup.Interval, cfg.Cleanup.Retention)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, manager, catalogLoader, repo, registry, runtimeCache, aiClient, blobClient)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Close collaborators
	registry.CloseAll()
	if err := runtimeCache.Close(); err != nil {
		slog.Error("cache close error", "error", err)
	}
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("playops-engine stopped")
}
