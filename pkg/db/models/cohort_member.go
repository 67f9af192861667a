package models

import (
	"time"

	"github.com/google/uuid"
)

// CohortMember records the calendar month a user first subscribed within a
// dimension. Cohort assignment is permanent.
type CohortMember struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cohort_user_dimension"`
	DimensionID string    `gorm:"column:dimension_id;type:text;not null;default:'';uniqueIndex:idx_cohort_user_dimension"`
	CohortMonth time.Time `gorm:"column:cohort_month;not null;index"`
	JoinedAt    time.Time `gorm:"column:joined_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
