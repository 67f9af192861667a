package cron

import (
	"context"
	"fmt"

	"github.com/matiasvr/folioscope-analytics/internal/profiles"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
)

const mergeJobName = "profile-merge"

type batchMerger interface {
	MergeBatch(ctx context.Context) (profiles.MergeReport, error)
}

// MergeJobParams configure the profile merge job.
type MergeJobParams struct {
	Logger     *logger.Logger
	Aggregator batchMerger
	Metrics    *metrics.JobMetrics
}

// NewMergeJob builds the job that drains the raw event buffer into user
// profiles. It must run after the mining and retention jobs: merging evicts
// the events those engines read.
func NewMergeJob(params MergeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Aggregator == nil {
		return nil, fmt.Errorf("aggregator required")
	}
	return &mergeJob{
		logg:       params.Logger,
		aggregator: params.Aggregator,
		metrics:    params.Metrics,
	}, nil
}

type mergeJob struct {
	logg       *logger.Logger
	aggregator batchMerger
	metrics    *metrics.JobMetrics
}

func (j *mergeJob) Name() string { return mergeJobName }

func (j *mergeJob) Run(ctx context.Context) error {
	report, err := j.aggregator.MergeBatch(ctx)
	j.metrics.AddRecords(mergeJobName, report.EventsConsumed)
	if err != nil {
		// committed chunks stay merged; the remainder waits for the next run
		return fmt.Errorf("merge batch: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"events_consumed":  report.EventsConsumed,
		"profiles_touched": report.ProfilesTouched,
		"chunks_completed": report.ChunksCompleted,
	})
	j.logg.Info(logCtx, "profile merge complete")
	return nil
}
