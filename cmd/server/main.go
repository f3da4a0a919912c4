package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/worthit/backend/config"
	httpDelivery "github.com/worthit/backend/internal/delivery/http"
	"github.com/worthit/backend/internal/domain"
	"github.com/worthit/backend/internal/infrastructure/cache"
	"github.com/worthit/backend/internal/infrastructure/scraper"
	"github.com/worthit/backend/internal/logging"
	"github.com/worthit/backend/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.Log.Level)
	slog.SetDefault(logger)

	logger.Info("starting WorthIt backend",
		"version", httpDelivery.Version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"limiter_capacity", cfg.Scrape.LimiterCapacity)

	// Background work outlives requests but not the process
	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	client := scraper.NewClient(cfg.Scrape.RequestTimeout, cfg.RateLimit.PerSite, cfg.RateLimit.PerSiteBurst, logger)
	if cfg.Server.Environment == "development" {
		client.SetDebug(true)
	}

	catalog, err := scraper.LoadCatalog(cfg.Scrape.CatalogPath)
	if err != nil {
		return err
	}
	adapters := catalog.Build(client, cfg.Scrape.RequestTimeout, logger)

	policies := make(map[string]usecase.SitePolicy, len(cfg.Scrape.Sites))
	for name, site := range cfg.Scrape.Sites {
		policies[name] = usecase.SitePolicy{Timeout: site.Timeout, Retries: site.Retries}
	}

	immediate, err := usecase.BuildSites(domain.TierImmediate, usecase.ImmediateSites, adapters, policies)
	if err != nil {
		return err
	}
	background, err := usecase.BuildSites(domain.TierBackground, usecase.BackgroundSites, adapters, policies)
	if err != nil {
		return err
	}

	jobStore := cache.NewMemoryCache[*usecase.Job](cfg.Registry.MaxEntries, cfg.Registry.CleanupInterval)
	defer jobStore.Close()

	// Initialize usecase layer
	limiter := usecase.NewLimiter(cfg.Scrape.LimiterCapacity)
	caller := usecase.NewCaller(limiter, cfg.Scrape.Backoff, logger)
	scheduler := usecase.NewScheduler(caller, logger)
	registry := usecase.NewRegistry(baseCtx, jobStore, scheduler, background,
		usecase.RegistryConfig{TTL: cfg.Registry.TTL}, logger)
	compareService := usecase.NewCompareService(
		scheduler,
		usecase.NewAggregator(logger),
		registry,
		usecase.CompareServiceConfig{Immediate: immediate},
		logger,
	)

	if cfg.Scrape.Warmup {
		go compareService.Warmup(baseCtx)
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(compareService, logger)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-baseCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
