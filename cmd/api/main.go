// Package main is the entry point for the feed ranking API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lumeo/feedrank/internal/api"
	"github.com/lumeo/feedrank/internal/cache"
	"github.com/lumeo/feedrank/internal/config"
	"github.com/lumeo/feedrank/internal/db"
	"github.com/lumeo/feedrank/internal/feed"
	"github.com/lumeo/feedrank/internal/health"
	"github.com/lumeo/feedrank/internal/jobs"
	"github.com/lumeo/feedrank/internal/middleware"
	"github.com/lumeo/feedrank/internal/store"
	"github.com/lumeo/feedrank/internal/tracing"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	if *help {
		fmt.Println("Feedrank API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("configuration error", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Distributed tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "feedrank-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-grpc",
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: 1.0,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracer provider", "error", err)
		}
	}()

	// Database
	dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Redis page cache (optional)
	var redisClient *redis.Client
	var feedCache feed.Cache
	var redisChecker api.HealthChecker
	if cfg.CacheEnabled {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		feedCache = cache.NewFeedCache(redisClient, cfg.CacheTTLDuration(), logger)
		redisChecker = health.NewRedisChecker(redisClient)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	feedMetrics := feed.NewMetrics()
	if err := feedMetrics.Register(registry); err != nil {
		logger.Error("failed to register feed metrics", "error", err)
		os.Exit(1)
	}
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(registry); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}

	// Calibration reloader keeps ranking weights tunable without restarts.
	reloader := feed.NewReloader(feed.ReloaderConfig{
		Path:       cfg.CalibrationPath,
		Interval:   cfg.CalibrationReloadDuration(),
		Logger:     logger,
		JobMetrics: jobMetrics,
	})
	reloader.Start(context.Background())
	defer reloader.Stop()

	// Ranking service
	postStore := store.NewPostgresStore(dbConn, logger)
	service := feed.NewService(feed.ServiceConfig{
		Window:        cfg.FeedWindow(),
		MaxCandidates: cfg.FeedMaxCandidates,
		PageSize:      cfg.FeedPageSize,
		Logger:        logger,
		Metrics:       feedMetrics,
		WeightsFn:     reloader.Current,
	}, postStore, feedCache)

	feedHandlers := api.NewFeedHandlers(service)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(dbConn),
		RedisChecker: redisChecker,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/feed/rank", feedHandlers.RankFeed)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Middleware: RequestID -> Tracing -> Logging -> HTTPMetrics
	handler := middleware.RequestID(
		middleware.Tracing("feedrank-api")(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(httpMetrics)(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
