package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetfamille/internal/cache"
	"budgetfamille/internal/cli"
	apphttp "budgetfamille/internal/http"
	"budgetfamille/internal/log"
	"budgetfamille/internal/metrics"
	"budgetfamille/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	logger.Info("Starting budget server", "port", cfg.Port, "backend", cfg.DataBackend)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	m := metrics.New()
	be := cli.OpenBackend(ctx, logger, cfg, m, true)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	session, err := services.NewSession(ctx, be.Gateway,
		services.WithClock(cli.Clock(cfg)),
		services.WithLogger(logger),
		services.WithMetrics(m),
		services.WithViewCache(cfg.ViewCacheSize, cfg.ViewCacheTTL),
	)
	if err != nil {
		logger.Error("Failed to load budget data", log.FieldError, err)
		os.Exit(1)
	}

	caches := cache.NewManager()
	if c := session.CacheCleaner(); c != nil {
		caches.Register(c)
	}
	caches.StartCleanup(ctx, time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, session,
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cancel()
		return
	}
	logger.Info("Server stopped gracefully")
}
