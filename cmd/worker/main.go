package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/app"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"golang.org/x/sync/errgroup"
)

const statsInterval = time.Minute

func main() {
	logger := observability.NewLogger(observability.DefaultLogConfig())

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = observability.NewLogger(observability.LogConfig{
		Level:          cfg.LogLevel,
		Format:         observability.LogFormat(cfg.LogFormat),
		ServiceName:    "aromabox-worker",
		ServiceVersion: cli.Version,
	})
	logger.Info("starting aromabox worker")

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return container.OutboxProcessor.Run(gctx) })
	g.Go(func() error { return container.OutboxCleaner.Run(gctx, cfg.OutboxCleanupInterval) })

	if cfg.RabbitMQURL != "" {
		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:       cfg.RabbitMQURL,
			QueueName: eventbus.DefaultQueueName,
			Prefetch:  cfg.OutboxBatchSize,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("failed to connect consumer to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		consumer.RegisterConsumer(container.ChangeSubscriber)
		g.Go(func() error { return consumer.Start(gctx) })
	}

	if cfg.WorkerHealthAddr != "" {
		mux := healthMux(container)
		if cfg.MetricsAddr == "" || cfg.MetricsAddr == cfg.WorkerHealthAddr {
			mux.Handle("/metrics", container.Prometheus.Handler())
		} else {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", container.Prometheus.Handler())
			g.Go(func() error { return serve(gctx, "metrics", cfg.MetricsAddr, metricsMux, logger) })
		}
		g.Go(func() error { return serve(gctx, "health", cfg.WorkerHealthAddr, mux, logger) })
	}

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				stats := container.OutboxProcessor.Stats()
				logger.Info("outbox stats",
					"published", stats.PublishedCount,
					"failed", stats.FailedCount,
					"dead", stats.DeadCount,
					"lag_seconds", stats.LagSeconds,
					"last_processed_at", stats.LastProcessedAt,
					"last_error", stats.LastError,
				)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func healthMux(container *app.Container) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := container.OutboxProcessor.Stats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":            "ok",
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"lag_seconds":       stats.LagSeconds,
			"last_processed_at": stats.LastProcessedAt,
			"last_error":        stats.LastError,
		})
	})
	mux.Handle("/readyz", container.Health.Handler())
	return mux
}

func serve(ctx context.Context, name, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown error", "server", name, "error", err)
		}
	}()

	logger.Info("server starting", "server", name, "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
