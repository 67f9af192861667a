package models

import (
	"time"

	"github.com/google/uuid"
)

// DimensionTotal stores the authoritative distinct subscriber count for a
// dimension. Rate denominators come from here, never from summing cohorts.
type DimensionTotal struct {
	ID                       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DimensionID              string    `gorm:"column:dimension_id;type:text;not null;default:'';uniqueIndex"`
	DistinctTotalSubscribers int       `gorm:"column:distinct_total_subscribers;not null"`
	ComputedAt               time.Time `gorm:"column:computed_at;not null"`
	CreatedAt                time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
