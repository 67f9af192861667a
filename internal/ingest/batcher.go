package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

const (
	defaultBatchSize    = 500
	defaultFlushTimeout = 5 * time.Second
)

type eventInserter interface {
	Insert(ctx context.Context, events []models.RawEvent) error
}

type pendingEvent struct {
	event models.RawEvent
	done  chan error
}

// BatcherParams configure the event batcher.
type BatcherParams struct {
	Logger       *logger.Logger
	Events       eventInserter
	BatchSize    int
	FlushTimeout time.Duration
}

// Batcher groups incoming events into one insert per batch. Add blocks until
// the batch holding the event has been written, so the caller can ack or nack
// the source message based on the real outcome of the insert.
type Batcher struct {
	logg         *logger.Logger
	events       eventInserter
	batchSize    int
	flushTimeout time.Duration

	mu  sync.Mutex
	buf []pendingEvent
}

// NewBatcher builds a batcher over the raw event store.
func NewBatcher(params BatcherParams) (*Batcher, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event store required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushTimeout := params.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = defaultFlushTimeout
	}
	return &Batcher{
		logg:         params.Logger,
		events:       params.Events,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}, nil
}

// Add enqueues one event and waits for its batch to flush.
func (b *Batcher) Add(ctx context.Context, event models.RawEvent) error {
	done := make(chan error, 1)

	b.mu.Lock()
	b.buf = append(b.buf, pendingEvent{event: event, done: done})
	full := len(b.buf) >= b.batchSize
	b.mu.Unlock()

	if full {
		b.flush(ctx)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run flushes partial batches on the configured timeout until the context is
// canceled, then drains whatever is still buffered.
func (b *Batcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.flushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.flush(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			b.flush(ctx)
		}
	}
}

func (b *Batcher) flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.buf
	b.buf = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	events := make([]models.RawEvent, len(batch))
	for i, p := range batch {
		events[i] = p.event
	}

	err := b.events.Insert(ctx, events)
	if err != nil {
		logCtx := b.logg.WithField(ctx, "batch_size", len(batch))
		b.logg.Error(logCtx, "event batch insert failed", err)
	}
	for _, p := range batch {
		p.done <- err
	}
}
