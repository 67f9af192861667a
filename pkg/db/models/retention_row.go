package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/matiasvr/folioscope-analytics/pkg/db/types"
)

// RetentionRow holds one cohort's full retention curve. RenewedCounts has one
// slot per month offset starting at zero; slot i is the distinct number of
// cohort members who renewed i months after joining.
type RetentionRow struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DimensionID   string          `gorm:"column:dimension_id;type:text;not null;default:'';index"`
	CohortMonth   time.Time       `gorm:"column:cohort_month;not null"`
	CohortSize    int             `gorm:"column:cohort_size;not null"`
	RenewedCounts dbtypes.IntList `gorm:"column:renewed_counts;type:jsonb"`
	ComputedAt    time.Time       `gorm:"column:computed_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
