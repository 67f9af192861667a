package journeys

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

const defaultSequenceLength = 5

// Sequence is one converter's deduplicated, length-bounded pre-conversion
// item list, oldest first.
type Sequence struct {
	Items []string
}

// Stats reports population facts the miner needs for honest percentages.
// EmptySequences tracks converters with zero qualifying pre-conversion
// events: they stay in the denominator but contribute to no numerator.
type Stats struct {
	TotalConverters int
	EmptySequences  int
}

type anchorLister interface {
	ListByDimension(ctx context.Context, dimensionID string) ([]models.ConversionAnchor, error)
}

type userEventLister interface {
	ListUserEventsBefore(ctx context.Context, userID uuid.UUID, before time.Time, since *time.Time) ([]models.RawEvent, error)
}

// ExtractorParams configure the sequence extractor.
type ExtractorParams struct {
	Logger         *logger.Logger
	Anchors        anchorLister
	Events         userEventLister
	SequenceLength int
}

// Extractor joins the event buffer against conversion anchors to produce each
// converter's pre-conversion journey.
type Extractor struct {
	logg      *logger.Logger
	anchors   anchorLister
	events    userEventLister
	maxLength int
}

// NewExtractor builds a sequence extractor.
func NewExtractor(params ExtractorParams) (*Extractor, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Anchors == nil {
		return nil, fmt.Errorf("anchor reader required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event reader required")
	}
	maxLength := params.SequenceLength
	if maxLength <= 0 {
		maxLength = defaultSequenceLength
	}
	return &Extractor{
		logg:      params.Logger,
		anchors:   params.Anchors,
		events:    params.Events,
		maxLength: maxLength,
	}, nil
}

// ExtractSequences returns, per converter in the dimension, the deduplicated
// chronological item list strictly before their anchor. windowStart, when
// set, bounds the journey on the left so ancient activity is ignored.
func (e *Extractor) ExtractSequences(ctx context.Context, dimensionID string, windowStart *time.Time) (map[uuid.UUID]Sequence, Stats, error) {
	anchors, err := e.anchors.ListByDimension(ctx, dimensionID)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("list anchors: %w", err)
	}

	stats := Stats{TotalConverters: len(anchors)}
	sequences := make(map[uuid.UUID]Sequence, len(anchors))

	for _, anchor := range anchors {
		events, err := e.events.ListUserEventsBefore(ctx, anchor.UserID, anchor.ConvertedAt, windowStart)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("list events for user %s: %w", anchor.UserID, err)
		}

		items := make([]InteractionItem, 0, len(events))
		for _, event := range events {
			items = append(items, normalizeEvent(event))
		}

		items = lastN(collapseConsecutive(items), e.maxLength)
		if len(items) == 0 {
			stats.EmptySequences++
			continue
		}

		labels := make([]string, len(items))
		for i, item := range items {
			labels[i] = item.Label
		}
		sequences[anchor.UserID] = Sequence{Items: labels}
	}

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"dimension_id":     dimensionID,
		"total_converters": stats.TotalConverters,
		"empty_sequences":  stats.EmptySequences,
	})
	e.logg.Info(logCtx, "sequence extraction complete")
	return sequences, stats, nil
}
