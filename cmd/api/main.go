// Package main is the entry point for the ETA prediction API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/topmanlogistics/etaserve/internal/api"
	"github.com/topmanlogistics/etaserve/internal/audit"
	"github.com/topmanlogistics/etaserve/internal/config"
	"github.com/topmanlogistics/etaserve/internal/db"
	"github.com/topmanlogistics/etaserve/internal/encoding"
	"github.com/topmanlogistics/etaserve/internal/health"
	"github.com/topmanlogistics/etaserve/internal/idempotency"
	"github.com/topmanlogistics/etaserve/internal/middleware"
	"github.com/topmanlogistics/etaserve/internal/model"
	"github.com/topmanlogistics/etaserve/internal/paystack"
	"github.com/topmanlogistics/etaserve/internal/pipeline"
	"github.com/topmanlogistics/etaserve/internal/tracing"
	"github.com/topmanlogistics/etaserve/internal/tracking"
)

const serviceName = "etaserve-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("ETA Prediction API Server")
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
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	// Model artifacts load once at startup; a service that cannot classify
	// has nothing to serve.
	classifier, err := model.Load(cfg.ModelPath)
	if err != nil {
		logger.Error("failed to load model artifact", "path", cfg.ModelPath, "error", err)
		os.Exit(1)
	}
	featureNames, err := model.LoadFeatureNames(cfg.FeatureNamesPath)
	if err != nil {
		logger.Error("failed to load feature names", "path", cfg.FeatureNamesPath, "error", err)
		os.Exit(1)
	}
	if classifier.NumFeatures() != len(featureNames) {
		logger.Error("model and feature schema disagree",
			"model_features", classifier.NumFeatures(), "schema_features", len(featureNames))
		os.Exit(1)
	}
	encoder := encoding.NewEncoder(featureNames)
	logger.Info("model loaded", "features", len(featureNames))

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	pipelineMetrics := pipeline.NewMetrics()
	if err := pipelineMetrics.Register(registry); err != nil {
		logger.Error("failed to register pipeline metrics", "error", err)
		os.Exit(1)
	}

	// An empty DATABASE_URL keeps audit records in memory, which is enough
	// for local development.
	var (
		sink      audit.Sink
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := db.Open(startupCtx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		pgSink := audit.NewPostgresSink(conn)
		if err := pgSink.Diagnostic(startupCtx); err != nil {
			logger.Warn("audit store diagnostic probe failed", "error", err)
		} else {
			logger.Info("audit store connected")
		}
		cancel()

		sink = pgSink
		dbChecker = health.NewDBChecker(conn)
	} else {
		logger.Warn("DATABASE_URL not set, audit records are kept in memory")
		sink = audit.NewInMemorySink()
	}

	var (
		eventStore   paystack.EventStore
		redisChecker api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		eventStore = paystack.NewRedisEventStore(redisClient, 0)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		logger.Warn("REDIS_URL not set, webhook deduplication is in-memory only")
		eventStore = paystack.NewInMemoryEventStore()
	}

	gateway := paystack.NewHTTPClient(paystack.ClientConfig{
		SecretKey:   cfg.PaystackSecretKey,
		Currency:    cfg.Currency,
		CallbackURL: cfg.PaystackCallbackURL,
	})
	trackingClient := tracking.NewClient(cfg.TrackingMoreAPIKey, "")

	pipe := pipeline.New(encoder, classifier, sink, pipelineMetrics)

	idemRepo := idempotency.NewInMemoryRepository()
	cleanupStop := make(chan struct{})
	go idempotency.RunPeriodicCleanup(idemRepo, time.Hour, idempotency.DefaultExpiry, cleanupStop)
	defer close(cleanupStop)

	paymentHandlers := api.NewPaymentHandlers(gateway, idemRepo)
	predictHandlers := api.NewPredictHandlers(pipe)
	webhookHandlers := api.NewWebhookHandlers(cfg.PaystackSecretKey, pipe, eventStore)
	trackingHandlers := api.NewTrackingHandlers(trackingClient, sink)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /initialize-payment", paymentHandlers.InitializePayment)
	mux.HandleFunc("POST /predict", predictHandlers.Predict)
	mux.HandleFunc("POST /paystack/webhook", webhookHandlers.HandlePaystackWebhook)
	mux.HandleFunc("POST /track", trackingHandlers.CreateTracking)
	mux.HandleFunc("GET /track/status", trackingHandlers.GetTrackingStatus)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"etaserve-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware order: request ID first so every later layer can log it.
	handler := middleware.RequestID(
		middleware.Tracing(serviceName)(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(httpMetrics)(mux))))

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
		os.Exit(1)
	}

	if err := tracingProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	logger.Info("server stopped")
}
