package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/internal/anchors"
	"github.com/matiasvr/folioscope-analytics/internal/retention"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventAppender interface {
	Add(ctx context.Context, event models.RawEvent) error
}

// HandlerParams configure the ingest handler.
type HandlerParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Buffer   eventAppender
	Anchors  anchors.Repository
	Cohorts  retention.CohortRepository
	Renewals retention.RenewalRepository
	Metrics  *metrics.IngestMetrics
}

// Handler turns validated envelopes into buffered raw events. Subscribe
// events additionally pin the conversion facts the scheduled engines read:
// the conversion anchor, the cohort membership and a renewal event.
type Handler struct {
	logg     *logger.Logger
	db       txRunner
	buffer   eventAppender
	anchors  anchors.Repository
	cohorts  retention.CohortRepository
	renewals retention.RenewalRepository
	metrics  *metrics.IngestMetrics
}

// NewHandler builds the ingest handler.
func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Buffer == nil {
		return nil, fmt.Errorf("event buffer required")
	}
	if params.Anchors == nil {
		return nil, fmt.Errorf("anchor repository required")
	}
	if params.Cohorts == nil {
		return nil, fmt.Errorf("cohort repository required")
	}
	if params.Renewals == nil {
		return nil, fmt.Errorf("renewal repository required")
	}
	return &Handler{
		logg:     params.Logger,
		db:       params.DB,
		buffer:   params.Buffer,
		anchors:  params.Anchors,
		cohorts:  params.Cohorts,
		renewals: params.Renewals,
		metrics:  params.Metrics,
	}, nil
}

// Handle persists one validated envelope.
func (h *Handler) Handle(ctx context.Context, envelope Envelope) error {
	if envelope.EventType == enums.EventSubscribe {
		if err := h.recordConversion(ctx, envelope); err != nil {
			return fmt.Errorf("record conversion facts: %w", err)
		}
	}

	event := models.RawEvent{
		ID:          uuid.New(),
		EventID:     envelope.EventID,
		UserID:      envelope.UserID,
		EventType:   envelope.EventType,
		ItemLabel:   envelope.ItemLabel,
		DimensionID: envelope.DimensionID,
		Metadata:    envelope.Attributes,
		OccurredAt:  envelope.OccurredAt.UTC(),
	}
	if err := h.buffer.Add(ctx, event); err != nil {
		return fmt.Errorf("buffer event: %w", err)
	}

	h.metrics.AddInserted(1)
	return nil
}

// recordConversion writes the anchor, cohort membership and renewal in one
// transaction. Facts are recorded under the envelope's dimension and under
// the global dimension, so cross-creator reports see every converter. Anchor
// and cohort inserts are first-occurrence writes; replays are no-ops there
// and the renewal duplicates they produce are deduplicated per offset by the
// retention engine.
func (h *Handler) recordConversion(ctx context.Context, envelope Envelope) error {
	occurred := envelope.OccurredAt.UTC()
	month := time.Date(occurred.Year(), occurred.Month(), 1, 0, 0, 0, 0, time.UTC)

	dimensions := []string{""}
	if envelope.DimensionID != "" {
		dimensions = append(dimensions, envelope.DimensionID)
	}

	return h.db.WithTx(ctx, func(tx *gorm.DB) error {
		anchorRepo := h.anchors.WithTx(tx)
		cohortRepo := h.cohorts.WithTx(tx)
		renewalRepo := h.renewals.WithTx(tx)

		for _, dimensionID := range dimensions {
			err := anchorRepo.RecordFirstConversion(ctx, models.ConversionAnchor{
				ID:          uuid.New(),
				UserID:      envelope.UserID,
				DimensionID: dimensionID,
				EventID:     envelope.EventID,
				ConvertedAt: occurred,
			})
			if err != nil {
				return fmt.Errorf("anchor: %w", err)
			}

			err = cohortRepo.RecordFirstSubscription(ctx, models.CohortMember{
				ID:          uuid.New(),
				UserID:      envelope.UserID,
				DimensionID: dimensionID,
				CohortMonth: month,
				JoinedAt:    occurred,
			})
			if err != nil {
				return fmt.Errorf("cohort: %w", err)
			}

			err = renewalRepo.Append(ctx, models.RenewalEvent{
				ID:          uuid.New(),
				UserID:      envelope.UserID,
				DimensionID: dimensionID,
				RenewedAt:   occurred,
			})
			if err != nil {
				return fmt.Errorf("renewal: %w", err)
			}
		}
		return nil
	})
}
