package anchors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

// Repository defines persistence operations for conversion anchors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	RecordFirstConversion(ctx context.Context, anchor models.ConversionAnchor) error
	ListByDimension(ctx context.Context, dimensionID string) ([]models.ConversionAnchor, error)
	ListDimensions(ctx context.Context) ([]string, error)
	FindByUserAndDimension(ctx context.Context, userID uuid.UUID, dimensionID string) (*models.ConversionAnchor, error)
}
