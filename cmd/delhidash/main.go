package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"delhidash/internal/cache"
	"delhidash/internal/cli"
	apphttp "delhidash/internal/http"
	applog "delhidash/internal/log"
	"delhidash/internal/observability"
	"delhidash/internal/report"
	"delhidash/internal/session"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT") == "json")
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat == "json")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	clock := clockwork.NewRealClock()
	store := session.NewStore(session.Options{
		TTL:            cfg.SessionTTL,
		MaxViews:       cfg.SessionMax,
		MapLoadTimeout: cfg.MapLoadTimeout,
		Clock:          clock,
		Logger:         logger.WithComponent(applog.ComponentSession).Logger,
		Metrics:        metrics,
	})

	// Expire idle view sessions in the background
	caches := cache.NewManager(clock, logger.WithComponent(applog.ComponentCache).Logger)
	for _, c := range store.Cleaners() {
		caches.Register(c)
	}
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	reports := report.NewClient(cfg.ReportAPIURL, cfg.ReportTimeout,
		logger.WithComponent(applog.ComponentReport).Logger, metrics)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:              store,
		Reports:            reports,
		Metrics:            metrics,
		Gatherer:           reg,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Clock:              clock,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting delhidash server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"report_api", cfg.ReportAPIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
