package ingest

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/matiasvr/folioscope-analytics/pkg/logger"
	"github.com/matiasvr/folioscope-analytics/pkg/metrics"
)

const ingestConsumerName = "ingest"

// EnvelopeHandler defines how to process validated envelopes.
type EnvelopeHandler interface {
	Handle(ctx context.Context, envelope Envelope) error
}

// HandlerFunc adapts functions to the EnvelopeHandler interface.
type HandlerFunc func(ctx context.Context, envelope Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Service consumes interaction events from Pub/Sub while honoring Redis
// idempotency. Malformed messages are acked away; transient failures nack so
// the broker redelivers.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      EnvelopeHandler
	manager      idempotencyChecker
	metrics      *metrics.IngestMetrics
	logg         *logger.Logger
}

// NewService creates a new ingest worker service.
func NewService(subscription *gcppubsub.Subscriber, handler EnvelopeHandler, manager idempotencyChecker, ingestMetrics *metrics.IngestMetrics, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("events subscription is required")
	}
	if handler == nil {
		return nil, errors.New("envelope handler is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	return &Service{
		subscription: subscription,
		handler:      handler,
		manager:      manager,
		metrics:      ingestMetrics,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming interaction events until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := DecodeEnvelope(msg.Data)
	if err != nil {
		s.metrics.IncRejected("invalid_envelope")
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid event envelope")
		return processResult{}
	}

	s.metrics.IncReceived(string(envelope.EventType))
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": envelope.EventType,
		"user_id":    envelope.UserID,
	})

	already, err := s.manager.CheckAndMarkProcessed(logCtx, ingestConsumerName, envelope.EventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		s.metrics.IncRejected("duplicate")
		s.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := s.handler.Handle(logCtx, *envelope); err != nil {
		s.logg.Error(logCtx, "event handling failed", err)
		_ = s.manager.Delete(logCtx, ingestConsumerName, envelope.EventID)
		return processResult{nack: true}
	}

	s.logg.Debug(logCtx, "event buffered")
	return processResult{}
}
