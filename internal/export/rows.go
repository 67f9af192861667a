package export

import (
	"time"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

// PathPatternRow is the reporting-table shape of one mined pattern.
type PathPatternRow struct {
	DimensionID  string    `bigquery:"dimension_id"`
	AnalysisType string    `bigquery:"analysis_type"`
	Items        []string  `bigquery:"items"`
	UserCount    int64     `bigquery:"user_count"`
	Percentage   float64   `bigquery:"percentage"`
	Rank         int64     `bigquery:"rank"`
	TotalUsers   int64     `bigquery:"total_users"`
	ComputedAt   time.Time `bigquery:"computed_at"`
}

// RetentionRow is the reporting-table shape of one cohort row.
type RetentionRow struct {
	DimensionID   string    `bigquery:"dimension_id"`
	CohortMonth   time.Time `bigquery:"cohort_month"`
	CohortSize    int64     `bigquery:"cohort_size"`
	RenewedCounts []int64   `bigquery:"renewed_counts"`
	ComputedAt    time.Time `bigquery:"computed_at"`
}

func patternRow(pattern models.PathPattern) PathPatternRow {
	pct, _ := pattern.Percentage.Float64()
	return PathPatternRow{
		DimensionID:  pattern.DimensionID,
		AnalysisType: string(pattern.AnalysisType),
		Items:        []string(pattern.Items),
		UserCount:    int64(pattern.UserCount),
		Percentage:   pct,
		Rank:         int64(pattern.Rank),
		TotalUsers:   int64(pattern.TotalUsers),
		ComputedAt:   pattern.ComputedAt,
	}
}

func retentionRow(row models.RetentionRow) RetentionRow {
	counts := make([]int64, len(row.RenewedCounts))
	for i, count := range row.RenewedCounts {
		counts[i] = int64(count)
	}
	return RetentionRow{
		DimensionID:   row.DimensionID,
		CohortMonth:   row.CohortMonth,
		CohortSize:    int64(row.CohortSize),
		RenewedCounts: counts,
		ComputedAt:    row.ComputedAt,
	}
}
