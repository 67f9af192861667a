package retention

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	dbtypes "github.com/matiasvr/folioscope-analytics/pkg/db/types"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

const defaultMaxOffsetMonths = 12

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cohortReader interface {
	ListByDimension(ctx context.Context, dimensionID string) ([]models.CohortMember, error)
}

type renewalReader interface {
	ListByDimension(ctx context.Context, dimensionID string) ([]models.RenewalEvent, error)
}

type rowRepoFactory func(tx *gorm.DB) RowRepository

type totalsRepoFactory func(tx *gorm.DB) TotalsRepository

// EngineParams configure the retention engine.
type EngineParams struct {
	Logger            *logger.Logger
	DB                txRunner
	Cohorts           cohortReader
	Renewals          renewalReader
	RowRepoFactory    rowRepoFactory
	TotalsRepoFactory totalsRepoFactory
	MaxOffsetMonths   int
}

// Engine buckets converters into calendar-month cohorts and computes how many
// members of each cohort renew at every month offset.
type Engine struct {
	logg          *logger.Logger
	db            txRunner
	cohorts       cohortReader
	renewals      renewalReader
	rowFactory    rowRepoFactory
	totalsFactory totalsRepoFactory
	maxOffset     int
	now           func() time.Time
}

// NewEngine builds the retention engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Cohorts == nil {
		return nil, fmt.Errorf("cohort reader required")
	}
	if params.Renewals == nil {
		return nil, fmt.Errorf("renewal reader required")
	}
	rowFactory := params.RowRepoFactory
	if rowFactory == nil {
		rowFactory = NewRowRepository
	}
	totalsFactory := params.TotalsRepoFactory
	if totalsFactory == nil {
		totalsFactory = NewTotalsRepository
	}
	maxOffset := params.MaxOffsetMonths
	if maxOffset <= 0 {
		maxOffset = defaultMaxOffsetMonths
	}
	return &Engine{
		logg:          params.Logger,
		db:            params.DB,
		cohorts:       params.Cohorts,
		renewals:      params.Renewals,
		rowFactory:    rowFactory,
		totalsFactory: totalsFactory,
		maxOffset:     maxOffset,
		now:           time.Now,
	}, nil
}

// ComputeRetention rebuilds the dimension's retention matrix and its
// authoritative subscriber total, replacing both atomically. The total comes
// from the distinct membership count, never from summing cohort sizes, since
// a user can appear in several cohorts over time.
func (e *Engine) ComputeRetention(ctx context.Context, dimensionID string) ([]models.RetentionRow, error) {
	members, err := e.cohorts.ListByDimension(ctx, dimensionID)
	if err != nil {
		return nil, fmt.Errorf("list cohort members: %w", err)
	}
	renewals, err := e.renewals.ListByDimension(ctx, dimensionID)
	if err != nil {
		return nil, fmt.Errorf("list renewals: %w", err)
	}

	computedAt := e.now().UTC()
	rows := e.buildRows(members, renewals, dimensionID, computedAt)
	distinctSubscribers := len(members)

	err = e.db.WithTx(ctx, func(tx *gorm.DB) error {
		rowRepo := e.rowFactory(tx)
		if err := rowRepo.DeleteByDimension(ctx, dimensionID); err != nil {
			return fmt.Errorf("delete previous rows: %w", err)
		}
		if err := rowRepo.Insert(ctx, rows); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		totalsRepo := e.totalsFactory(tx)
		if err := totalsRepo.Upsert(ctx, dimensionID, distinctSubscribers, computedAt); err != nil {
			return fmt.Errorf("upsert dimension total: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"dimension_id":         dimensionID,
		"cohorts":              len(rows),
		"distinct_subscribers": distinctSubscribers,
	})
	e.logg.Info(logCtx, "retention matrix replaced")
	return rows, nil
}

func (e *Engine) buildRows(members []models.CohortMember, renewals []models.RenewalEvent, dimensionID string, computedAt time.Time) []models.RetentionRow {
	cohortByUser := make(map[uuid.UUID]time.Time, len(members))
	sizeByMonth := map[time.Time]int{}
	for _, member := range members {
		month := monthStart(member.CohortMonth)
		cohortByUser[member.UserID] = month
		sizeByMonth[month]++
	}

	countsByMonth := map[time.Time][]int{}
	for month := range sizeByMonth {
		countsByMonth[month] = make([]int, e.maxOffset+1)
	}

	// a user renewing several times inside one offset month counts once
	counted := map[string]bool{}
	for _, renewal := range renewals {
		cohortMonth, ok := cohortByUser[renewal.UserID]
		if !ok {
			continue
		}
		offset := monthsBetween(cohortMonth, monthStart(renewal.RenewedAt))
		if offset < 0 || offset > e.maxOffset {
			continue
		}
		key := fmt.Sprintf("%s:%d", renewal.UserID, offset)
		if counted[key] {
			continue
		}
		counted[key] = true
		countsByMonth[cohortMonth][offset]++
	}

	months := make([]time.Time, 0, len(sizeByMonth))
	for month := range sizeByMonth {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	rows := make([]models.RetentionRow, 0, len(months))
	for _, month := range months {
		rows = append(rows, models.RetentionRow{
			ID:            uuid.New(),
			DimensionID:   dimensionID,
			CohortMonth:   month,
			CohortSize:    sizeByMonth[month],
			RenewedCounts: dbtypes.IntList(countsByMonth[month]),
			ComputedAt:    computedAt,
		})
	}
	return rows
}

// Percentage returns the retention rate for one offset of a row, as a
// percentage rounded to two decimals. A zero-size cohort yields zero.
func Percentage(row models.RetentionRow, offset int) decimal.Decimal {
	if row.CohortSize <= 0 || offset < 0 || offset >= len(row.RenewedCounts) {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(row.RenewedCounts[offset]) * 100).
		Div(decimal.NewFromInt(int64(row.CohortSize))).
		Round(2)
}

// monthStart normalizes a timestamp to the first instant of its UTC month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
