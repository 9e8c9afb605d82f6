// Command server runs the FloodGuard model serving service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appservice "github.com/floodguard/serving/internal/application/service"
	"github.com/floodguard/serving/internal/config"
	"github.com/floodguard/serving/internal/infrastructure/monitoring"
	"github.com/floodguard/serving/internal/infrastructure/persistence/redis"
	"github.com/floodguard/serving/internal/interfaces/http/handlers"
	"github.com/floodguard/serving/internal/interfaces/http/router"
	"github.com/floodguard/serving/internal/ml"
	"github.com/floodguard/serving/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, v, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	log.Info(ctx, "starting floodguard serving",
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
	)

	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	config.Watch(v, func(next *config.Config) {
		log.Info(ctx, "configuration file changed; model path updates apply on next reload")
	})

	metrics := monitoring.NewMetrics()
	monitor := monitoring.NewPerformanceMonitor(metrics)

	var conn *redis.Connection
	if cfg.Redis.Enabled {
		conn, err = redis.NewConnection(&cfg.Redis, log)
		if err != nil {
			// Degraded start: the local tier still caches, readiness reports it.
			log.Warn(ctx, "redis unavailable, serving without distributed cache",
				logger.String("error", err.Error()))
			conn = nil
		} else {
			defer conn.Close()
		}
	}
	cache := redis.NewPredictionCache(conn, cfg.Cache.LocalFallback, log)

	registry := ml.NewRegistry(&cfg.Models, log)
	summary := registry.ReloadAll(ctx)
	if summary.Succeeded == 0 {
		return fmt.Errorf("no model family could be loaded: %s", summary.Summary)
	}
	log.Info(ctx, "models loaded", logger.String("summary", summary.Summary))

	service := appservice.NewPredictionService(cache, &cfg.Cache, monitor, metrics, registry, log)
	if cfg.Models.Warmup {
		service.Warmup(ctx)
	}

	r := router.NewRouter(
		cfg,
		log,
		tracing,
		handlers.NewHealthHandler(service, conn, log),
		handlers.NewPredictionHandler(service, log),
		handlers.NewModelHandler(service, log),
		handlers.NewMetricsHandler(service, log),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info(ctx, "shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "graceful shutdown failed", err)
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}
