package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

// Repository defines persistence operations for the raw event buffer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, events []models.RawEvent) error
	FetchChunk(ctx context.Context, limit int) ([]models.RawEvent, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	ListUserEventsBefore(ctx context.Context, userID uuid.UUID, before time.Time, since *time.Time) ([]models.RawEvent, error)
	Count(ctx context.Context) (int64, error)
}
