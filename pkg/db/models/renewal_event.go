package models

import (
	"time"

	"github.com/google/uuid"
)

// RenewalEvent is one subscription renewal used to light up a cohort offset.
// A user renewing several times inside the same month still counts once; the
// retention query deduplicates by user and offset.
type RenewalEvent struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	DimensionID string    `gorm:"column:dimension_id;type:text;not null;default:''"`
	RenewedAt   time.Time `gorm:"column:renewed_at;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
