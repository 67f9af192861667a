package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

// RawEvent is one ingested interaction waiting to be merged into a profile.
// Rows are consumed oldest-first and deleted once their chunk commits.
type RawEvent struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     uuid.UUID       `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	EventType   enums.EventType `gorm:"column:event_type;type:text;not null"`
	ItemLabel   string          `gorm:"column:item_label;type:text;not null"`
	DimensionID string          `gorm:"column:dimension_id;type:text;not null;default:''"`
	Metadata    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	OccurredAt  time.Time       `gorm:"column:occurred_at;not null;index"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
