package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/internal/api"
	"github.com/trogers1052/ichimoku-signal-service/internal/cache"
	"github.com/trogers1052/ichimoku-signal-service/internal/config"
	"github.com/trogers1052/ichimoku-signal-service/internal/database"
	"github.com/trogers1052/ichimoku-signal-service/internal/kafka"
	"github.com/trogers1052/ichimoku-signal-service/internal/scanner"
	"github.com/trogers1052/ichimoku-signal-service/internal/subscription"
	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
	"github.com/trogers1052/ichimoku-signal-service/pkg/metrics"
	"github.com/trogers1052/ichimoku-signal-service/pkg/worker"
)

const (
	retentionInterval = time.Hour
	expiryInterval    = 10 * time.Minute
	workerStopTimeout = 10 * time.Second
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		return err
	}
	logger.Info("database ready", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.DBName))

	recorder := metrics.New(prometheus.DefaultRegisterer)

	var analysisCache scanner.AnalysisCache
	if cfg.Redis.Enabled {
		c, err := cache.New(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer c.Close()
		analysisCache = c
		logger.Info("analysis cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	var publisher scanner.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlignmentTopic)
		defer producer.Close()
		publisher = producer
	}

	engine := scanner.NewEngine(db, analysisCache, publisher, recorder)

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.SignalsTopic, cfg.Kafka.GroupID, engine)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	workers := []*worker.PeriodicWorker{
		worker.NewPeriodicWorker(scanner.NewRecomputer(engine), cfg.Scanner.Interval),
		worker.NewPeriodicWorker(scanner.NewRetention(engine, cfg.Scanner.Retention), retentionInterval),
		worker.NewPeriodicWorker(subscription.NewExpirySweeper(db), expiryInterval),
	}
	for _, w := range workers {
		w.Start(ctx)
	}

	subscriptions := subscription.NewService(db, subscription.Config{
		TrialDays: cfg.Subscription.TrialDays,
		PaidDays:  cfg.Subscription.PaidDays,
	})

	handler := api.NewHandler(db, engine, subscriptions, db)
	router := api.SetupRoutes(handler, api.RouteOptions{
		Metrics:             promhttp.Handler(),
		Recorder:            recorder,
		RequireSubscription: cfg.Server.RequireSubscription,
		AdminToken:          cfg.Server.AdminToken,
	})
	if cfg.Server.AdminToken == "" {
		logger.Warn("SERVER_ADMIN_TOKEN not set, subscription activation is disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	for _, w := range workers {
		w.Stop(workerStopTimeout)
	}

	logger.Info("service stopped")
	return nil
}
