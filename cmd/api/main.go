package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matiasvr/folioscope-analytics/api/controllers"
	"github.com/matiasvr/folioscope-analytics/api/routes"
	"github.com/matiasvr/folioscope-analytics/internal/journeys"
	"github.com/matiasvr/folioscope-analytics/internal/profiles"
	"github.com/matiasvr/folioscope-analytics/internal/retention"
	"github.com/matiasvr/folioscope-analytics/pkg/bigquery"
	"github.com/matiasvr/folioscope-analytics/pkg/config"
	"github.com/matiasvr/folioscope-analytics/pkg/db"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pingers := map[string]controllers.Pinger{
		"database": dbClient,
	}

	// The reporting API only reads the warehouse, so BigQuery is probed for
	// readiness only when exports are configured.
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
		pingers["bigquery"] = bqClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting reporting api")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			Pingers:   pingers,
			Patterns:  journeys.NewPatternRepository(dbClient.DB()),
			Retention: retention.NewRowRepository(dbClient.DB()),
			Totals:    retention.NewTotalsRepository(dbClient.DB()),
			Profiles:  profiles.NewRepository(dbClient.DB()),
			Registry:  prometheus.NewRegistry(),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "reporting api stopped unexpectedly", err)
		os.Exit(1)
	}
}
