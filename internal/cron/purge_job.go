package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
)

const (
	purgeJobName          = "event-purge"
	defaultEventRetention = 30 * 24 * time.Hour
)

type eventPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeJobParams configure the raw event purge job.
type PurgeJobParams struct {
	Logger    *logger.Logger
	Events    eventPurger
	Retention time.Duration
	Metrics   *metrics.JobMetrics
}

// NewPurgeJob builds the safety-net job that drops buffered events older than
// the retention window. Healthy runs consume events long before the cutoff;
// this only catches rows left behind by repeatedly failing merges.
func NewPurgeJob(params PurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultEventRetention
	}
	return &purgeJob{
		logg:      params.Logger,
		events:    params.Events,
		retention: retention,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

type purgeJob struct {
	logg      *logger.Logger
	events    eventPurger
	retention time.Duration
	metrics   *metrics.JobMetrics
	now       func() time.Time
}

func (j *purgeJob) Name() string { return purgeJobName }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("event purge: %w", err)
	}

	j.metrics.AddRecords(purgeJobName, int(deleted))
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "event purge complete")
	return nil
}
