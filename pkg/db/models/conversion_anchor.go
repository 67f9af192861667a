package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversionAnchor pins the first conversion a user performed inside one
// dimension. Once written the row never changes; later conversions by the
// same user in the same dimension are ignored.
type ConversionAnchor struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_anchor_user_dimension"`
	DimensionID string    `gorm:"column:dimension_id;type:text;not null;default:'';uniqueIndex:idx_anchor_user_dimension"`
	EventID     uuid.UUID `gorm:"column:event_id;type:uuid;not null"`
	ConvertedAt time.Time `gorm:"column:converted_at;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
