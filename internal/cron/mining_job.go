package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/matiasvr/folioscope-analytics/internal/journeys"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
)

const miningJobName = "path-mining"

type dimensionLister interface {
	ListDimensions(ctx context.Context) ([]string, error)
}

type sequenceExtractor interface {
	ExtractSequences(ctx context.Context, dimensionID string, windowStart *time.Time) (map[uuid.UUID]journeys.Sequence, journeys.Stats, error)
}

type patternMiner interface {
	MinePatterns(sequences map[uuid.UUID]journeys.Sequence, stats journeys.Stats, dimensionID string, computedAt time.Time) []models.PathPattern
}

type patternStore interface {
	ReplacePatterns(ctx context.Context, dimensionID string, patterns []models.PathPattern) error
}

type patternExporter interface {
	ExportPatterns(ctx context.Context, patterns []models.PathPattern) error
	Flush(ctx context.Context) error
}

// MiningJobParams configure the path mining job.
type MiningJobParams struct {
	Logger    *logger.Logger
	Anchors   dimensionLister
	Extractor sequenceExtractor
	Miner     patternMiner
	Store     patternStore
	Exporter  patternExporter
	Metrics   *metrics.JobMetrics
}

// NewMiningJob builds the job that recomputes conversion path patterns for
// the global dimension and for every dimension with recorded conversions.
// A failing dimension does not stop the remaining ones.
func NewMiningJob(params MiningJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Anchors == nil {
		return nil, fmt.Errorf("anchor repository required")
	}
	if params.Extractor == nil {
		return nil, fmt.Errorf("sequence extractor required")
	}
	if params.Miner == nil {
		return nil, fmt.Errorf("pattern miner required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("pattern store required")
	}
	return &miningJob{
		logg:      params.Logger,
		anchors:   params.Anchors,
		extractor: params.Extractor,
		miner:     params.Miner,
		store:     params.Store,
		exporter:  params.Exporter,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

type miningJob struct {
	logg      *logger.Logger
	anchors   dimensionLister
	extractor sequenceExtractor
	miner     patternMiner
	store     patternStore
	exporter  patternExporter
	metrics   *metrics.JobMetrics
	now       func() time.Time
}

func (j *miningJob) Name() string { return miningJobName }

func (j *miningJob) Run(ctx context.Context) error {
	dimensions, err := j.listDimensions(ctx)
	if err != nil {
		return fmt.Errorf("list dimensions: %w", err)
	}

	computedAt := j.now().UTC()
	mined := 0
	var errs []error
	for _, dimensionID := range dimensions {
		dimCtx := j.logg.WithDimension(ctx, dimensionID)

		sequences, stats, err := j.extractor.ExtractSequences(ctx, dimensionID, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("extract %q: %w", dimensionID, err))
			continue
		}

		patterns := j.miner.MinePatterns(sequences, stats, dimensionID, computedAt)
		if err := j.store.ReplacePatterns(ctx, dimensionID, patterns); err != nil {
			errs = append(errs, fmt.Errorf("replace patterns %q: %w", dimensionID, err))
			continue
		}

		if j.exporter != nil {
			if err := j.exporter.ExportPatterns(ctx, patterns); err != nil {
				errs = append(errs, fmt.Errorf("export patterns %q: %w", dimensionID, err))
			}
		}

		mined += len(patterns)
		dimCtx = j.logg.WithFields(dimCtx, map[string]any{
			"converters": stats.TotalConverters,
			"patterns":   len(patterns),
		})
		j.logg.Info(dimCtx, "patterns recomputed")
	}

	if j.exporter != nil {
		if err := j.exporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush exports: %w", err))
		}
	}

	j.metrics.AddRecords(miningJobName, mined)
	return multierr.Combine(errs...)
}

// listDimensions returns the global dimension first, then every recorded one.
func (j *miningJob) listDimensions(ctx context.Context) ([]string, error) {
	recorded, err := j.anchors.ListDimensions(ctx)
	if err != nil {
		return nil, err
	}
	dimensions := []string{""}
	for _, dimensionID := range recorded {
		if dimensionID == "" {
			continue
		}
		dimensions = append(dimensions, dimensionID)
	}
	return dimensions, nil
}
