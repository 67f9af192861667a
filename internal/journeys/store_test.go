package journeys

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	dbtypes "github.com/matiasvr/folioscope-analytics/pkg/db/types"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
)

type storeTxRunner struct {
	db *gorm.DB
}

func (r storeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupPatternsDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`CREATE TABLE path_patterns (
		id TEXT PRIMARY KEY,
		dimension_id TEXT NOT NULL DEFAULT '',
		analysis_type TEXT NOT NULL,
		items TEXT,
		user_count INTEGER NOT NULL,
		percentage NUMERIC NOT NULL,
		rank INTEGER NOT NULL,
		total_users INTEGER NOT NULL,
		computed_at DATETIME NOT NULL,
		created_at DATETIME
	)`).Error
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Exec(`DROP TABLE path_patterns`).Error
	})

	return db
}

func samplePattern(dimensionID, label string, rank int) models.PathPattern {
	return models.PathPattern{
		ID:           uuid.New(),
		DimensionID:  dimensionID,
		AnalysisType: enums.AnalysisEntryPoint,
		Items:        dbtypes.StringList{label},
		UserCount:    rank,
		Percentage:   decimal.NewFromInt(50),
		Rank:         rank,
		TotalUsers:   2,
		ComputedAt:   time.Now().UTC(),
	}
}

func TestReplacePatternsSwapsWholeSet(t *testing.T) {
	db := setupPatternsDB(t)
	store, err := NewStore(StoreParams{Logger: testLogger(), DB: storeTxRunner{db: db}})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.ReplacePatterns(ctx, "creator-1", []models.PathPattern{
		samplePattern("creator-1", "$AAPL", 1),
		samplePattern("creator-1", "$BTC", 2),
	}))
	require.NoError(t, store.ReplacePatterns(ctx, "creator-1", []models.PathPattern{
		samplePattern("creator-1", "$ETH", 1),
	}))

	rows, err := NewPatternRepository(db).ListByDimension(ctx, "creator-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dbtypes.StringList{"$ETH"}, rows[0].Items)
}

func TestReplacePatternsLeavesOtherDimensionsAlone(t *testing.T) {
	db := setupPatternsDB(t)
	store, err := NewStore(StoreParams{Logger: testLogger(), DB: storeTxRunner{db: db}})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.ReplacePatterns(ctx, "creator-1", []models.PathPattern{samplePattern("creator-1", "$AAPL", 1)}))
	require.NoError(t, store.ReplacePatterns(ctx, "creator-2", []models.PathPattern{samplePattern("creator-2", "$BTC", 1)}))

	rows, err := NewPatternRepository(db).ListByDimension(ctx, "creator-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type failingPatternRepo struct {
	PatternRepository
}

func (r failingPatternRepo) Insert(ctx context.Context, patterns []models.PathPattern) error {
	return errors.New("insert refused")
}

func TestReplacePatternsKeepsPreviousSetOnFailure(t *testing.T) {
	db := setupPatternsDB(t)
	ctx := context.Background()

	healthy, err := NewStore(StoreParams{Logger: testLogger(), DB: storeTxRunner{db: db}})
	require.NoError(t, err)
	require.NoError(t, healthy.ReplacePatterns(ctx, "creator-1", []models.PathPattern{samplePattern("creator-1", "$AAPL", 1)}))

	broken, err := NewStore(StoreParams{
		Logger: testLogger(),
		DB:     storeTxRunner{db: db},
		RepoFactory: func(tx *gorm.DB) PatternRepository {
			return failingPatternRepo{PatternRepository: NewPatternRepository(tx)}
		},
	})
	require.NoError(t, err)

	err = broken.ReplacePatterns(ctx, "creator-1", []models.PathPattern{samplePattern("creator-1", "$ETH", 1)})
	require.Error(t, err)

	rows, err := NewPatternRepository(db).ListByDimension(ctx, "creator-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dbtypes.StringList{"$AAPL"}, rows[0].Items, "previous complete set still readable after failed swap")
}
