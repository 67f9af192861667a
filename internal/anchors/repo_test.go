package anchors

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

func setupAnchorsDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`CREATE TABLE conversion_anchors (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		dimension_id TEXT NOT NULL DEFAULT '',
		event_id TEXT NOT NULL,
		converted_at DATETIME NOT NULL,
		created_at DATETIME,
		UNIQUE (user_id, dimension_id)
	)`).Error
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Exec(`DROP TABLE conversion_anchors`).Error
	})

	return db
}

func TestRecordFirstConversionIsImmutable(t *testing.T) {
	db := setupAnchorsDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	first := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	require.NoError(t, repo.RecordFirstConversion(ctx, models.ConversionAnchor{
		ID: uuid.New(), UserID: userID, DimensionID: "creator-1", EventID: uuid.New(), ConvertedAt: first,
	}))
	require.NoError(t, repo.RecordFirstConversion(ctx, models.ConversionAnchor{
		ID: uuid.New(), UserID: userID, DimensionID: "creator-1", EventID: uuid.New(), ConvertedAt: later,
	}))

	anchor, err := repo.FindByUserAndDimension(ctx, userID, "creator-1")
	require.NoError(t, err)
	assert.True(t, anchor.ConvertedAt.Equal(first), "later conversion must not overwrite the anchor")
}

func TestAnchorsArePerDimension(t *testing.T) {
	db := setupAnchorsDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.RecordFirstConversion(ctx, models.ConversionAnchor{
		ID: uuid.New(), UserID: userID, DimensionID: "creator-1", EventID: uuid.New(), ConvertedAt: now,
	}))
	require.NoError(t, repo.RecordFirstConversion(ctx, models.ConversionAnchor{
		ID: uuid.New(), UserID: userID, DimensionID: "creator-2", EventID: uuid.New(), ConvertedAt: now,
	}))

	dims, err := repo.ListDimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"creator-1", "creator-2"}, dims)

	rows, err := repo.ListByDimension(ctx, "creator-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, userID, rows[0].UserID)
}
