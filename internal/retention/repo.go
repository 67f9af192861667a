package retention

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

type cohortRepository struct {
	db *gorm.DB
}

// NewCohortRepository builds a cohort membership repository.
func NewCohortRepository(db *gorm.DB) CohortRepository {
	return &cohortRepository{db: db}
}

func (r *cohortRepository) WithTx(tx *gorm.DB) CohortRepository {
	if tx == nil {
		return r
	}
	return &cohortRepository{db: tx}
}

// RecordFirstSubscription assigns the user to the cohort of their first
// qualifying month. Assignment is permanent; a later re-qualification in a
// different month is a no-op.
func (r *cohortRepository) RecordFirstSubscription(ctx context.Context, member models.CohortMember) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "dimension_id"}},
			DoNothing: true,
		}).
		Create(&member).Error
}

func (r *cohortRepository) ListByDimension(ctx context.Context, dimensionID string) ([]models.CohortMember, error) {
	var rows []models.CohortMember
	err := r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		Order("cohort_month ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *cohortRepository) ListDimensions(ctx context.Context) ([]string, error) {
	var dimensions []string
	err := r.db.WithContext(ctx).
		Model(&models.CohortMember{}).
		Distinct("dimension_id").
		Order("dimension_id ASC").
		Pluck("dimension_id", &dimensions).Error
	if err != nil {
		return nil, err
	}
	return dimensions, nil
}

type renewalRepository struct {
	db *gorm.DB
}

// NewRenewalRepository builds a renewal event repository.
func NewRenewalRepository(db *gorm.DB) RenewalRepository {
	return &renewalRepository{db: db}
}

func (r *renewalRepository) WithTx(tx *gorm.DB) RenewalRepository {
	if tx == nil {
		return r
	}
	return &renewalRepository{db: tx}
}

func (r *renewalRepository) Append(ctx context.Context, event models.RenewalEvent) error {
	return r.db.WithContext(ctx).Create(&event).Error
}

func (r *renewalRepository) ListByDimension(ctx context.Context, dimensionID string) ([]models.RenewalEvent, error) {
	var rows []models.RenewalEvent
	err := r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		Order("renewed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type rowRepository struct {
	db *gorm.DB
}

// NewRowRepository builds a retention row repository.
func NewRowRepository(db *gorm.DB) RowRepository {
	return &rowRepository{db: db}
}

func (r *rowRepository) WithTx(tx *gorm.DB) RowRepository {
	if tx == nil {
		return r
	}
	return &rowRepository{db: tx}
}

func (r *rowRepository) DeleteByDimension(ctx context.Context, dimensionID string) error {
	return r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		Delete(&models.RetentionRow{}).Error
}

func (r *rowRepository) Insert(ctx context.Context, rows []models.RetentionRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *rowRepository) ListByDimension(ctx context.Context, dimensionID string) ([]models.RetentionRow, error) {
	var rows []models.RetentionRow
	err := r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		Order("cohort_month ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type totalsRepository struct {
	db *gorm.DB
}

// NewTotalsRepository builds a dimension totals repository.
func NewTotalsRepository(db *gorm.DB) TotalsRepository {
	return &totalsRepository{db: db}
}

func (r *totalsRepository) WithTx(tx *gorm.DB) TotalsRepository {
	if tx == nil {
		return r
	}
	return &totalsRepository{db: tx}
}

func (r *totalsRepository) Upsert(ctx context.Context, dimensionID string, distinctSubscribers int, computedAt time.Time) error {
	total := models.DimensionTotal{
		ID:                       uuid.New(),
		DimensionID:              dimensionID,
		DistinctTotalSubscribers: distinctSubscribers,
		ComputedAt:               computedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "dimension_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"distinct_total_subscribers", "computed_at", "updated_at",
			}),
		}).
		Create(&total).Error
}

func (r *totalsRepository) Find(ctx context.Context, dimensionID string) (*models.DimensionTotal, error) {
	var total models.DimensionTotal
	err := r.db.WithContext(ctx).
		Where("dimension_id = ?", dimensionID).
		First(&total).Error
	if err != nil {
		return nil, err
	}
	return &total, nil
}
