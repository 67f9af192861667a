package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/internal/events"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	pkgerrors "github.com/matiasvr/folioscope-analytics/pkg/errors"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

const (
	defaultChunkSize    = 10000
	defaultChunkTimeout = 300 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventRepoFactory func(tx *gorm.DB) events.Repository

type profileRepoFactory func(tx *gorm.DB) Repository

// MergeReport summarizes one merge run.
type MergeReport struct {
	ProfilesTouched int
	EventsConsumed  int
	ChunksCompleted int
}

// AggregatorParams configure the profile merge engine.
type AggregatorParams struct {
	Logger             *logger.Logger
	DB                 txRunner
	ChunkSize          int
	ChunkTimeout       time.Duration
	EventRepoFactory   eventRepoFactory
	ProfileRepoFactory profileRepoFactory
}

// Aggregator folds buffered raw events into durable per-user profile
// counters. The buffer is drained in fixed-size chunks; each chunk merges its
// profile updates and evicts its rows in one transaction, so an aborted run
// leaves every completed chunk committed and the remainder still buffered.
type Aggregator struct {
	logg           *logger.Logger
	db             txRunner
	chunkSize      int
	chunkTimeout   time.Duration
	eventFactory   eventRepoFactory
	profileFactory profileRepoFactory
	now            func() time.Time
}

// NewAggregator builds the merge engine.
func NewAggregator(params AggregatorParams) (*Aggregator, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	chunkSize := params.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	chunkTimeout := params.ChunkTimeout
	if chunkTimeout <= 0 {
		chunkTimeout = defaultChunkTimeout
	}
	eventFactory := params.EventRepoFactory
	if eventFactory == nil {
		eventFactory = events.NewRepository
	}
	profileFactory := params.ProfileRepoFactory
	if profileFactory == nil {
		profileFactory = NewRepository
	}
	return &Aggregator{
		logg:           params.Logger,
		db:             params.DB,
		chunkSize:      chunkSize,
		chunkTimeout:   chunkTimeout,
		eventFactory:   eventFactory,
		profileFactory: profileFactory,
		now:            time.Now,
	}, nil
}

// MergeBatch drains the event buffer chunk by chunk until it is empty. A
// chunk failure aborts the run; already-committed chunks stay committed and
// a re-run picks up the remaining rows.
func (a *Aggregator) MergeBatch(ctx context.Context) (MergeReport, error) {
	report := MergeReport{}
	touched := map[uuid.UUID]bool{}

	for {
		consumed, err := a.mergeChunk(ctx, touched)
		if err != nil {
			report.ProfilesTouched = len(touched)
			return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge chunk failed")
		}
		if consumed == 0 {
			break
		}
		report.EventsConsumed += consumed
		report.ChunksCompleted++
	}

	report.ProfilesTouched = len(touched)
	logCtx := a.logg.WithFields(ctx, map[string]any{
		"profiles_touched": report.ProfilesTouched,
		"events_consumed":  report.EventsConsumed,
		"chunks_completed": report.ChunksCompleted,
	})
	a.logg.Info(logCtx, "profile merge run complete")
	return report, nil
}

// mergeChunk merges and evicts one chunk inside a single transaction bounded
// by the chunk time budget.
func (a *Aggregator) mergeChunk(ctx context.Context, touched map[uuid.UUID]bool) (int, error) {
	chunkCtx, cancel := context.WithTimeout(ctx, a.chunkTimeout)
	defer cancel()

	consumed := 0
	var chunkUsers []uuid.UUID
	err := a.db.WithTx(chunkCtx, func(tx *gorm.DB) error {
		eventRepo := a.eventFactory(tx)
		profileRepo := a.profileFactory(tx)

		chunk, err := eventRepo.FetchChunk(chunkCtx, a.chunkSize)
		if err != nil {
			return fmt.Errorf("fetch chunk: %w", err)
		}
		if len(chunk) == 0 {
			return nil
		}

		deltas := BuildDeltas(chunk)
		userIDs := make([]uuid.UUID, 0, len(deltas))
		for userID := range deltas {
			userIDs = append(userIDs, userID)
		}

		existing, err := profileRepo.FindByUserIDs(chunkCtx, userIDs)
		if err != nil {
			return fmt.Errorf("load profiles: %w", err)
		}
		byUser := make(map[uuid.UUID]models.UserProfile, len(existing))
		for _, profile := range existing {
			byUser[profile.UserID] = profile
		}

		updated := make([]models.UserProfile, 0, len(deltas))
		for userID, delta := range deltas {
			profile, ok := byUser[userID]
			if !ok {
				profile = models.UserProfile{UserID: userID}
			}
			applyDelta(&profile, delta, !touched[userID])
			updated = append(updated, profile)
		}

		if err := profileRepo.Save(chunkCtx, updated); err != nil {
			return fmt.Errorf("save profiles: %w", err)
		}

		ids := make([]uuid.UUID, 0, len(chunk))
		for _, event := range chunk {
			ids = append(ids, event.ID)
		}
		if err := eventRepo.DeleteByIDs(chunkCtx, ids); err != nil {
			return fmt.Errorf("evict chunk: %w", err)
		}

		chunkUsers = userIDs
		consumed = len(chunk)
		return nil
	})
	if err != nil {
		return 0, err
	}

	// marked only after the chunk transaction committed
	for _, userID := range chunkUsers {
		touched[userID] = true
	}
	return consumed, nil
}
