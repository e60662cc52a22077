package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/anushreehmm/nodedown/internal/api"
	"github.com/anushreehmm/nodedown/internal/cache"
	"github.com/anushreehmm/nodedown/internal/config"
	"github.com/anushreehmm/nodedown/internal/metrics"
	"github.com/anushreehmm/nodedown/internal/services"
	"github.com/anushreehmm/nodedown/internal/watch"
)

// memoryCacheAddr selects the in-process cache instead of Redis.
const memoryCacheAddr = "memory"

func newServeCommand(root *rootOptions) *cobra.Command {
	var sources sourceFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report API over HTTP with gRPC health and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			sources.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, newLogger(cmd, cfg))
		},
	}
	sources.register(cmd)
	return cmd
}

// runServe blocks until ctx is cancelled or a listener fails.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("starting nodereport",
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("grpc_address", cfg.Server.GRPCAddress),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	provider := newCacheProvider(cfg.Cache, logger)
	defer provider.Close()

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	service := services.NewReportService(logger, pipeline, provider, cfg.Cache.TTL)

	stats, err := service.Reload(ctx)
	if err != nil {
		return fmt.Errorf("initial ingestion: %w", err)
	}

	grpcServer, err := api.NewHealthServer(cfg.Server.GRPCAddress)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}
	grpcServer.Publish(stats)
	service.OnReload(grpcServer.Publish)

	httpServer, err := api.NewHTTPServer(cfg.Server.HTTPAddress, api.NewRouter(api.NewHandler(logger, service)))
	if err != nil {
		grpcServer.Shutdown(context.Background())
		return fmt.Errorf("create HTTP server: %w", err)
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("gRPC health listening", slog.String("address", grpcServer.Address()))
		if err := grpcServer.Start(); err != nil {
			logger.Error("gRPC server exited", slog.Any("error", err))
			stop()
		}
	}()

	go func() {
		logger.Info("report API listening", slog.String("address", httpServer.Address()))
		if err := httpServer.Start(); err != nil {
			logger.Error("HTTP server exited", slog.Any("error", err))
			stop()
		}
	}()

	if cfg.Watch.Enabled {
		watcher, err := watch.New(logger, cfg.Watch.Debounce, func(ctx context.Context) error {
			_, err := service.Reload(ctx)
			return err
		}, cfg.Sources.EventLog.Path, cfg.Sources.MetricSamples.Path)
		if err != nil {
			logger.Error("source watcher disabled", slog.Any("error", err))
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("source watcher exited", slog.Any("error", err))
				}
			}()
		}
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", slog.Any("error", err))
	}
	grpcServer.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("nodereport stopped")
	return nil
}

// newCacheProvider never fails: an unreachable Redis degrades to no caching.
func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled || cfg.Addr == "" {
		return cache.NoopProvider{}
	}
	if cfg.Addr == memoryCacheAddr {
		return cache.NewMemoryProvider()
	}
	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		TLS:          cfg.TLS,
	})
	if err != nil {
		logger.Warn("redis cache unavailable", slog.String("addr", cfg.Addr), slog.Any("error", err))
		return cache.NoopProvider{}
	}
	return provider
}
