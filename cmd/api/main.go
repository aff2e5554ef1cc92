// Package main is the entry point for the places API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/weplace/weplace/internal/api"
	"github.com/weplace/weplace/internal/auth"
	"github.com/weplace/weplace/internal/config"
	"github.com/weplace/weplace/internal/health"
	"github.com/weplace/weplace/internal/middleware"
	"github.com/weplace/weplace/internal/oracle"
	"github.com/weplace/weplace/internal/place"
	"github.com/weplace/weplace/internal/reward"
	"github.com/weplace/weplace/internal/search"
	"github.com/weplace/weplace/internal/tracing"
	"github.com/weplace/weplace/internal/update"
)

func main() {
	configFile := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("WePlace API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, len(summary)*2)
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "weplace-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Place store: Postgres when configured, in-memory otherwise.
	var (
		repo      place.Repository
		db        *sql.DB
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		repo = place.NewPostgresRepository(db)
		dbChecker = health.NewDBChecker(db)
		logger.Info("using postgres place repository")
	} else {
		repo = place.NewInMemoryRepository()
		logger.Info("using in-memory place repository")
	}

	// Rate limit store: Redis when configured, in-memory otherwise.
	var (
		rateLimitStore middleware.RateLimitStore
		redisClient    *redis.Client
		redisChecker   api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(metrics)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis rate limit store")
	} else {
		store := middleware.NewInMemoryRateLimitStore()
		rateLimitStore = store
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				store.Cleanup()
			}
		}()
	}

	// Validation oracle. With no endpoint configured the fail-closed client
	// rejects every update, which is the safe default.
	validator := oracle.NewClient(oracle.ClientConfig{
		Endpoint: cfg.OracleEndpoint,
		APIKey:   cfg.OracleAPIKey,
		Model:    cfg.OracleModel,
		HTTPClient: &http.Client{
			Timeout:   oracle.DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	})

	// Ranking engine
	var ranker *search.Ranker
	if cfg.SearchFallback {
		ranker = search.NewDegradedRanker()
		logger.Warn("search running in degraded substring mode")
	} else {
		ranker = search.NewRanker()
	}
	ranker = ranker.WithThreshold(cfg.SearchThreshold)

	// Update orchestration
	estimator := reward.NewSimulatedEstimator(time.Now().UnixNano())
	orchestrator := update.NewOrchestrator(repo, validator, estimator,
		update.WithBaseRate(cfg.CompensationBaseRate))

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)

	mux := api.NewRouter(api.RouterConfig{
		Places: api.NewPlaceHandlers(repo),
		Search: api.NewSearchHandlers(repo, ranker),
		Update: api.NewUpdateHandlers(orchestrator, metrics),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    dbChecker,
			RedisChecker: redisChecker,
		}),
		SearchLimiter: middleware.RateLimiter(rateLimitStore, middleware.DefaultSearchLimit(), middleware.ContributorKeyFunc()),
		UpdateAuth: func(next http.Handler) http.Handler {
			limited := middleware.RateLimiter(rateLimitStore, middleware.DefaultUpdateLimit(), middleware.ContributorKeyFunc())(next)
			return middleware.RequireAuth(jwtService)(limited)
		},
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Middleware chain, outermost first:
	// RequestID -> Tracing -> HTTPMetrics -> Logging -> CORS -> global rate limit
	var handler http.Handler = mux
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing("weplace-api")(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("database close failed", "error", err)
		}
	}

	logger.Info("server stopped")
}
