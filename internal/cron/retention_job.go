package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
)

const retentionJobName = "cohort-retention"

type retentionComputer interface {
	ComputeRetention(ctx context.Context, dimensionID string) ([]models.RetentionRow, error)
}

type retentionExporter interface {
	ExportRetention(ctx context.Context, rows []models.RetentionRow) error
	Flush(ctx context.Context) error
}

// RetentionJobParams configure the cohort retention job.
type RetentionJobParams struct {
	Logger   *logger.Logger
	Cohorts  dimensionLister
	Engine   retentionComputer
	Exporter retentionExporter
	Metrics  *metrics.JobMetrics
}

// NewRetentionJob builds the job that rebuilds the retention matrix for the
// global dimension and every dimension with cohort members.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Cohorts == nil {
		return nil, fmt.Errorf("cohort repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("retention engine required")
	}
	return &retentionJob{
		logg:     params.Logger,
		cohorts:  params.Cohorts,
		engine:   params.Engine,
		exporter: params.Exporter,
		metrics:  params.Metrics,
	}, nil
}

type retentionJob struct {
	logg     *logger.Logger
	cohorts  dimensionLister
	engine   retentionComputer
	exporter retentionExporter
	metrics  *metrics.JobMetrics
}

func (j *retentionJob) Name() string { return retentionJobName }

func (j *retentionJob) Run(ctx context.Context) error {
	recorded, err := j.cohorts.ListDimensions(ctx)
	if err != nil {
		return fmt.Errorf("list dimensions: %w", err)
	}
	dimensions := []string{""}
	for _, dimensionID := range recorded {
		if dimensionID == "" {
			continue
		}
		dimensions = append(dimensions, dimensionID)
	}

	computed := 0
	var errs []error
	for _, dimensionID := range dimensions {
		rows, err := j.engine.ComputeRetention(ctx, dimensionID)
		if err != nil {
			errs = append(errs, fmt.Errorf("retention %q: %w", dimensionID, err))
			continue
		}

		if j.exporter != nil {
			if err := j.exporter.ExportRetention(ctx, rows); err != nil {
				errs = append(errs, fmt.Errorf("export retention %q: %w", dimensionID, err))
			}
		}
		computed += len(rows)
	}

	if j.exporter != nil {
		if err := j.exporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush exports: %w", err))
		}
	}

	j.metrics.AddRecords(retentionJobName, computed)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"dimensions":  len(dimensions),
		"cohort_rows": computed,
	})
	j.logg.Info(logCtx, "retention matrices rebuilt")
	return multierr.Combine(errs...)
}
