package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bikeshare/internal/amqp"
	"bikeshare/internal/cache"
	"bikeshare/internal/cli"
	"bikeshare/internal/core"
	"bikeshare/internal/dataset"
	apphttp "bikeshare/internal/http"
	"bikeshare/internal/log"
	"bikeshare/internal/metrics"
	"bikeshare/internal/services"
	"bikeshare/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelStartup()

	res := cli.OpenBackend(startupCtx, logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	rec := metrics.NewPrometheusRecorder()

	dashCache := cache.NewLRUCache[core.Dashboard](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(dashCache)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	holder := dataset.NewHolder()
	reloader := services.NewReloader(res.Reader, holder, dashCache, rec)
	ds, err := reloader.Reload(startupCtx)
	if err != nil {
		logger.Error("Initial dataset load failed", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	logger.Info("Dataset loaded", log.NewFields().
		WithRows(len(ds.Daily), len(ds.Hourly)).
		WithRange(ds.Bounds.Start.String(), ds.Bounds.End.String()).
		ToSlice()...)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:                ":" + cfg.Port,
		Dashboard:           services.NewDashboardService(holder, dashCache, rec),
		Metrics:             rec,
		Logger:              logger.WithComponent(log.ComponentHTTP),
		Ping:                res.Ping,
		ExportRatePerMinute: cfg.ExportRatePerMinute,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	if cfg.AMQPURL != "" {
		w := worker.NewReloadWorker(reloader)
		dial := func() (*amqp.Client, error) {
			return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		}
		go func() {
			if err := w.Run(ctx, dial); err != nil {
				logger.Error("Reload worker stopped", log.FieldError, err)
			}
		}()
		logger.Info("Listening for dataset imports", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else if importLog, ok := res.Reader.(services.ImportLog); ok && cfg.ReloadPollInterval > 0 {
		poller := services.NewImportPoller(importLog, reloader, cfg.ReloadPollInterval)
		if err := poller.Start(ctx); err != nil {
			logger.Error("Failed to start import poller", log.FieldError, err)
		} else {
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = poller.Stop(stopCtx)
			}()
		}
	} else {
		logger.Info("No reload trigger configured, dataset reloads need a restart")
	}

	logger.Info("Starting bikeshare dashboard", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
