package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matiasvr/folioscope-analytics/internal/anchors"
	"github.com/matiasvr/folioscope-analytics/internal/events"
	"github.com/matiasvr/folioscope-analytics/internal/ingest"
	"github.com/matiasvr/folioscope-analytics/internal/retention"
	"github.com/matiasvr/folioscope-analytics/pkg/config"
	"github.com/matiasvr/folioscope-analytics/pkg/db"
	"github.com/matiasvr/folioscope-analytics/pkg/idempotency"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
	"github.com/matiasvr/folioscope-analytics/pkg/migrate"
	"github.com/matiasvr/folioscope-analytics/pkg/pubsub"
	"github.com/matiasvr/folioscope-analytics/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "ingest-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "ingest-worker"

	logg = logger.New(logger.Options{
		ServiceName: "ingest-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Ingest.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	ingestMetrics := metrics.NewIngestMetrics(prometheus.DefaultRegisterer)

	batcher, err := ingest.NewBatcher(ingest.BatcherParams{
		Logger:       logg,
		Events:       events.NewRepository(dbClient.DB()),
		BatchSize:    cfg.Ingest.BatchSize,
		FlushTimeout: cfg.Ingest.FlushTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create batcher", err)
		os.Exit(1)
	}

	handler, err := ingest.NewHandler(ingest.HandlerParams{
		Logger:   logg,
		DB:       dbClient,
		Buffer:   batcher,
		Anchors:  anchors.NewRepository(dbClient.DB()),
		Cohorts:  retention.NewCohortRepository(dbClient.DB()),
		Renewals: retention.NewRenewalRepository(dbClient.DB()),
		Metrics:  ingestMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create envelope handler", err)
		os.Exit(1)
	}

	service, err := ingest.NewService(pubsubClient.EventsSubscription(), handler, manager, ingestMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting ingest worker")

	go func() {
		if err := batcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "batcher stopped unexpectedly", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "ingest worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "ingest worker shutting down gracefully")
}
