package retention

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

// CohortRepository defines persistence operations for cohort membership.
type CohortRepository interface {
	WithTx(tx *gorm.DB) CohortRepository
	RecordFirstSubscription(ctx context.Context, member models.CohortMember) error
	ListByDimension(ctx context.Context, dimensionID string) ([]models.CohortMember, error)
	ListDimensions(ctx context.Context) ([]string, error)
}

// RenewalRepository defines persistence operations for renewal events.
type RenewalRepository interface {
	WithTx(tx *gorm.DB) RenewalRepository
	Append(ctx context.Context, event models.RenewalEvent) error
	ListByDimension(ctx context.Context, dimensionID string) ([]models.RenewalEvent, error)
}

// RowRepository defines persistence operations for computed retention rows.
type RowRepository interface {
	WithTx(tx *gorm.DB) RowRepository
	DeleteByDimension(ctx context.Context, dimensionID string) error
	Insert(ctx context.Context, rows []models.RetentionRow) error
	ListByDimension(ctx context.Context, dimensionID string) ([]models.RetentionRow, error)
}

// TotalsRepository defines persistence operations for the authoritative
// per-dimension subscriber counts.
type TotalsRepository interface {
	WithTx(tx *gorm.DB) TotalsRepository
	Upsert(ctx context.Context, dimensionID string, distinctSubscribers int, computedAt time.Time) error
	Find(ctx context.Context, dimensionID string) (*models.DimensionTotal, error)
}
