package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

// Repository defines persistence operations for user profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]models.UserProfile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Save(ctx context.Context, profiles []models.UserProfile) error
}
