package journeys

import (
	"context"

	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

// PatternRepository defines persistence operations for mined patterns.
type PatternRepository interface {
	WithTx(tx *gorm.DB) PatternRepository
	DeleteByDimension(ctx context.Context, dimensionID string) error
	Insert(ctx context.Context, patterns []models.PathPattern) error
	ListByDimension(ctx context.Context, dimensionID string) ([]models.PathPattern, error)
}

type patternRepository struct {
	db *gorm.DB
}

// NewPatternRepository builds a pattern repository bound to the provided DB.
func NewPatternRepository(db *gorm.DB) PatternRepository {
	return &patternRepository{db: db}
}

func (r *patternRepository) WithTx(tx *gorm.DB) PatternRepository {
	if tx == nil {
		return r
	}
	return &patternRepository{db: tx}
}

func (r *patternRepository) DeleteByDimension(ctx context.Context, dimensionID string) error {
	return r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		Delete(&models.PathPattern{}).Error
}

func (r *patternRepository) Insert(ctx context.Context, patterns []models.PathPattern) error {
	if len(patterns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&patterns).Error
}

func (r *patternRepository) ListByDimension(ctx context.Context, dimensionID string) ([]models.PathPattern, error) {
	var rows []models.PathPattern
	err := r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		Order("analysis_type ASC, rank ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
