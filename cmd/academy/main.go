package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/academy-engine/internal/api"
	"github.com/terra-clan/academy-engine/internal/cache"
	"github.com/terra-clan/academy-engine/internal/catalog"
	"github.com/terra-clan/academy-engine/internal/config"
	"github.com/terra-clan/academy-engine/internal/content"
	"github.com/terra-clan/academy-engine/internal/leads"
	"github.com/terra-clan/academy-engine/internal/learning"
	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/search"
	"github.com/terra-clan/academy-engine/internal/services"
	"github.com/terra-clan/academy-engine/internal/storage"
	"github.com/terra-clan/academy-engine/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting academy-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"public_url", cfg.Server.PublicURL,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	registry := services.NewRegistry()

	// Initialize storage
	var repo storage.Repository
	if cfg.UseMemoryStorage() {
		memory := storage.NewMemoryRepository()
		if cfg.Server.AdminAPIKey != "" {
			memory.AddClient(&models.ApiClient{
				ID:          1,
				Name:        "admin",
				ApiKey:      cfg.Server.AdminAPIKey,
				IsActive:    true,
				CreatedAt:   time.Now(),
				Permissions: []string{"*"},
			})
		}
		repo = memory
		slog.Warn("no database configured, using in-memory storage")
	} else {
		var migrationsFS fs.FS = migrations.FS
		if cfg.Database.MigrationsDir != "" {
			migrationsFS = os.DirFS(cfg.Database.MigrationsDir)
		}

		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, migrationsFS); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		pg, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}
		repo = pg
		registry.Register("postgres", services.PingChecker(pg))
		slog.Info("database connected successfully")
	}
	defer repo.Close()

	// Initialize page cache
	var pageCache cache.PageCache = cache.Noop{}
	if cfg.Redis.Address != "" {
		rc, err := cache.NewRedisCache(initCtx, cache.RedisConfig{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.CacheTTL,
		})
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		pageCache = rc
		registry.Register("redis", services.PingChecker(rc))
	} else {
		slog.Warn("no redis configured, page cache disabled")
	}

	// Load course catalog
	courses := catalog.NewLoader()
	if err := courses.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load catalog from dir", "dir", cfg.Catalog.Dir, "error", err)
	}

	// Build search index
	index, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		slog.Error("failed to open search index", "path", cfg.Search.IndexPath, "error", err)
		os.Exit(1)
	}
	defer index.Close()

	indexer := search.NewIndexer(index, courses, repo)
	if _, err := indexer.Rebuild(initCtx); err != nil {
		slog.Error("failed to build search index", "error", err)
		os.Exit(1)
	}
	registry.Register("search", services.CheckFunc(func(context.Context) error {
		_, err := index.Count()
		return err
	}))

	// Initialize services
	contentService := content.NewService(repo, pageCache)
	learningService := learning.NewService(repo, courses)

	forwarder := leads.NewWebhookForwarder(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout)
	if !forwarder.Enabled() {
		slog.Warn("no lead webhook configured, leads are stored only")
	}
	leadService := leads.NewService(repo, forwarder, cfg.Leads.MaxAttempts)
	dispatcher := leads.NewDispatcher(leadService, cfg.Leads.DispatchInterval, cfg.Leads.BatchSize)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Dependencies{
		Repo:       repo,
		Catalog:    courses,
		Content:    contentService,
		Learning:   learningService,
		Leads:      leadService,
		Dispatcher: dispatcher,
		Indexer:    indexer,
		Health:     registry,
	})
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	if !cfg.UseMemoryStorage() {
		listener := content.NewListener(cfg.Database.DSN, pageCache)
		listener.OnChange(func(slug string) {
			if err := indexer.RefreshPage(gctx, slug); err != nil {
				slog.Error("failed to refresh search index", "slug", slug, "error", err)
			}
		})
		g.Go(func() error {
			return listener.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("academy-engine stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("academy-engine stopped")
}
