package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the incrementally maintained aggregate for one user. Rolling
// window counters carry the latest computed window total; lifetime counters
// accumulate across merge batches; booleans latch once set.
type UserProfile struct {
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`

	ViewCount7d        int `gorm:"column:view_count_7d;not null;default:0"`
	TapCount7d         int `gorm:"column:tap_count_7d;not null;default:0"`
	PremiumViewCount7d int `gorm:"column:premium_view_count_7d;not null;default:0"`

	CopyCountTotal      int `gorm:"column:copy_count_total;not null;default:0"`
	SubscribeCountTotal int `gorm:"column:subscribe_count_total;not null;default:0"`
	SessionCountTotal   int `gorm:"column:session_count_total;not null;default:0"`

	HasLinkedFunding   bool `gorm:"column:has_linked_funding;not null;default:false"`
	HasCopiedPortfolio bool `gorm:"column:has_copied_portfolio;not null;default:false"`

	FirstSeenAt time.Time `gorm:"column:first_seen_at;not null"`
	LastEventAt time.Time `gorm:"column:last_event_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
