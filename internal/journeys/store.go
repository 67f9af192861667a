package journeys

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type patternRepoFactory func(tx *gorm.DB) PatternRepository

// StoreParams configure the pattern store.
type StoreParams struct {
	Logger      *logger.Logger
	DB          txRunner
	RepoFactory patternRepoFactory
}

// Store persists mined pattern sets. Each dimension's patterns are replaced
// wholesale inside one transaction, so readers always see either the previous
// complete set or the next one.
type Store struct {
	logg        *logger.Logger
	db          txRunner
	repoFactory patternRepoFactory
}

// NewStore builds a pattern store.
func NewStore(params StoreParams) (*Store, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = NewPatternRepository
	}
	return &Store{
		logg:        params.Logger,
		db:          params.DB,
		repoFactory: repoFactory,
	}, nil
}

// ReplacePatterns swaps the dimension's pattern set for the given one.
func (s *Store) ReplacePatterns(ctx context.Context, dimensionID string, patterns []models.PathPattern) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFactory(tx)
		if err := repo.DeleteByDimension(ctx, dimensionID); err != nil {
			return fmt.Errorf("delete previous patterns: %w", err)
		}
		if err := repo.Insert(ctx, patterns); err != nil {
			return fmt.Errorf("insert patterns: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"dimension_id": dimensionID,
		"patterns":     len(patterns),
	})
	s.logg.Info(logCtx, "pattern set replaced")
	return nil
}
