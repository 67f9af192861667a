package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matiasvr/folioscope-analytics/internal/anchors"
	"github.com/matiasvr/folioscope-analytics/internal/cron"
	"github.com/matiasvr/folioscope-analytics/internal/events"
	"github.com/matiasvr/folioscope-analytics/internal/export"
	"github.com/matiasvr/folioscope-analytics/internal/journeys"
	"github.com/matiasvr/folioscope-analytics/internal/profiles"
	"github.com/matiasvr/folioscope-analytics/internal/retention"
	"github.com/matiasvr/folioscope-analytics/pkg/bigquery"
	"github.com/matiasvr/folioscope-analytics/pkg/config"
	"github.com/matiasvr/folioscope-analytics/pkg/db"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
	"github.com/matiasvr/folioscope-analytics/pkg/migrate"
	"github.com/matiasvr/folioscope-analytics/pkg/redis"
)

const lockKeyFormat = "fsc:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	anchorsRepo := anchors.NewRepository(dbClient.DB())
	eventsRepo := events.NewRepository(dbClient.DB())
	cohortsRepo := retention.NewCohortRepository(dbClient.DB())
	renewalsRepo := retention.NewRenewalRepository(dbClient.DB())

	extractor, err := journeys.NewExtractor(journeys.ExtractorParams{
		Logger:         logg,
		Anchors:        anchorsRepo,
		Events:         eventsRepo,
		SequenceLength: cfg.Jobs.SequenceLength,
	})
	requireComponent(logg, "sequence extractor", err)

	miner, err := journeys.NewMiner(journeys.MinerParams{
		Logger: logg,
		TopK:   cfg.Jobs.PatternTopK,
	})
	requireComponent(logg, "pattern miner", err)

	patternStore, err := journeys.NewStore(journeys.StoreParams{
		Logger:      logg,
		DB:          dbClient,
		RepoFactory: journeys.NewPatternRepository,
	})
	requireComponent(logg, "pattern store", err)

	engine, err := retention.NewEngine(retention.EngineParams{
		Logger:            logg,
		DB:                dbClient,
		Cohorts:           cohortsRepo,
		Renewals:          renewalsRepo,
		RowRepoFactory:    retention.NewRowRepository,
		TotalsRepoFactory: retention.NewTotalsRepository,
		MaxOffsetMonths:   cfg.Jobs.RetentionMonths,
	})
	requireComponent(logg, "retention engine", err)

	aggregator, err := profiles.NewAggregator(profiles.AggregatorParams{
		Logger:             logg,
		DB:                 dbClient,
		ChunkSize:          cfg.Jobs.MergeChunkSize,
		ChunkTimeout:       cfg.Jobs.MergeChunkTimeout,
		EventRepoFactory:   events.NewRepository,
		ProfileRepoFactory: profiles.NewRepository,
	})
	requireComponent(logg, "profile aggregator", err)

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	miningParams := cron.MiningJobParams{
		Logger:    logg,
		Anchors:   anchorsRepo,
		Extractor: extractor,
		Miner:     miner,
		Store:     patternStore,
		Metrics:   jobMetrics,
	}
	retentionParams := cron.RetentionJobParams{
		Logger:  logg,
		Cohorts: cohortsRepo,
		Engine:  engine,
		Metrics: jobMetrics,
	}

	if cfg.BigQuery.Enabled() {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()

		writer, err := export.New(bqClient, export.Config{
			PatternsTable:  cfg.BigQuery.PatternsTable,
			RetentionTable: cfg.BigQuery.RetentionTable,
		})
		requireComponent(logg, "bigquery writer", err)

		miningParams.Exporter = writer
		retentionParams.Exporter = writer
	}

	miningJob, err := cron.NewMiningJob(miningParams)
	requireComponent(logg, "mining job", err)

	retentionJob, err := cron.NewRetentionJob(retentionParams)
	requireComponent(logg, "retention job", err)

	mergeJob, err := cron.NewMergeJob(cron.MergeJobParams{
		Logger:     logg,
		Aggregator: aggregator,
		Metrics:    jobMetrics,
	})
	requireComponent(logg, "merge job", err)

	purgeJob, err := cron.NewPurgeJob(cron.PurgeJobParams{
		Logger:    logg,
		Events:    eventsRepo,
		Retention: cfg.Jobs.EventRetention,
		Metrics:   jobMetrics,
	})
	requireComponent(logg, "purge job", err)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	requireComponent(logg, "cron lock", err)

	// Mining and retention read the raw buffer the merge job evicts, so the
	// registration order here is load-bearing.
	registry := cron.NewRegistry(miningJob, retentionJob, mergeJob, purgeJob)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Jobs.Interval,
	})
	requireComponent(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func requireComponent(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
