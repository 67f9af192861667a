package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an event buffer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert appends events, silently skipping rows whose event id was already
// buffered. Upstream redelivery must not produce duplicate rows.
func (r *repository) Insert(ctx context.Context, events []models.RawEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&events).Error
}

// FetchChunk returns the oldest buffered events up to limit. Chunks are pulled
// from the head of the buffer and deleted after merge, so the cost of each
// fetch stays constant no matter how much of the backlog remains.
func (r *repository) FetchChunk(ctx context.Context, limit int) ([]models.RawEvent, error) {
	var rows []models.RawEvent
	err := r.db.WithContext(ctx).
		Order("occurred_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.RawEvent{}).Error
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("occurred_at < ?", cutoff).
		Delete(&models.RawEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListUserEventsBefore returns one user's events strictly before the given
// timestamp, oldest first. When since is provided, events before it are
// excluded so the journey window can be bounded on both ends.
func (r *repository) ListUserEventsBefore(ctx context.Context, userID uuid.UUID, before time.Time, since *time.Time) ([]models.RawEvent, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("occurred_at < ?", before)
	if since != nil {
		query = query.Where("occurred_at >= ?", *since)
	}

	var rows []models.RawEvent
	err := query.Order("occurred_at ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RawEvent{}).Count(&count).Error
	return count, err
}
