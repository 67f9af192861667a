package anchors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an anchor repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// RecordFirstConversion writes the anchor unless the (user, dimension) pair
// already has one. Anchors are first-occurrence facts; a later conversion by
// the same user in the same dimension is a no-op.
func (r *repository) RecordFirstConversion(ctx context.Context, anchor models.ConversionAnchor) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "dimension_id"}},
			DoNothing: true,
		}).
		Create(&anchor).Error
}

func (r *repository) ListByDimension(ctx context.Context, dimensionID string) ([]models.ConversionAnchor, error) {
	var rows []models.ConversionAnchor
	err := r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		Order("converted_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListDimensions(ctx context.Context) ([]string, error) {
	var dimensions []string
	err := r.db.WithContext(ctx).
		Model(&models.ConversionAnchor{}).
		Distinct("dimension_id").
		Order("dimension_id ASC").
		Pluck("dimension_id", &dimensions).Error
	if err != nil {
		return nil, err
	}
	return dimensions, nil
}

func (r *repository) FindByUserAndDimension(ctx context.Context, userID uuid.UUID, dimensionID string) (*models.ConversionAnchor, error) {
	var anchor models.ConversionAnchor
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND dimension_id = ?", userID, dimensionID).
		First(&anchor).Error
	if err != nil {
		return nil, err
	}
	return &anchor, nil
}
