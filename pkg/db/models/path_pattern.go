package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/matiasvr/folioscope-analytics/pkg/db/types"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

// PathPattern is one mined pre-conversion pattern. The full set for a
// dimension is replaced wholesale on every mining run.
type PathPattern struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DimensionID  string             `gorm:"column:dimension_id;type:text;not null;default:'';index"`
	AnalysisType enums.AnalysisType `gorm:"column:analysis_type;type:text;not null"`
	Items        dbtypes.StringList `gorm:"column:items;type:jsonb"`
	UserCount    int                `gorm:"column:user_count;not null"`
	Percentage   decimal.Decimal    `gorm:"column:percentage;type:numeric(5,2);not null"`
	Rank         int                `gorm:"column:rank;not null"`
	TotalUsers   int                `gorm:"column:total_users;not null"`
	ComputedAt   time.Time          `gorm:"column:computed_at;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
