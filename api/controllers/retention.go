package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/api/responses"
	"github.com/matiasvr/folioscope-analytics/internal/retention"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	pkgerrors "github.com/matiasvr/folioscope-analytics/pkg/errors"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

type retentionReader interface {
	ListByDimension(ctx context.Context, dimensionID string) ([]models.RetentionRow, error)
}

type totalsReader interface {
	Find(ctx context.Context, dimensionID string) (*models.DimensionTotal, error)
}

type cohortView struct {
	CohortMonth   string   `json:"cohort_month"`
	CohortSize    int      `json:"cohort_size"`
	RenewedCounts []int    `json:"renewed_counts"`
	Percentages   []string `json:"percentages"`
}

type retentionResponse struct {
	Dimension                string       `json:"dimension"`
	DistinctTotalSubscribers int          `json:"distinct_total_subscribers"`
	Cohorts                  []cohortView `json:"cohorts"`
}

// GetRetention serves the latest cohort retention matrix for one dimension.
// The subscriber total comes from the authoritative per-dimension count, not
// from summing cohort sizes.
func GetRetention(rows retentionReader, totals totalsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dimension := strings.TrimSpace(r.URL.Query().Get("dimension"))

		cohorts, err := rows.ListByDimension(ctx, dimension)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list retention rows"))
			return
		}

		payload := retentionResponse{
			Dimension: dimension,
			Cohorts:   make([]cohortView, 0, len(cohorts)),
		}

		total, err := totals.Find(ctx, dimension)
		switch {
		case err == nil:
			payload.DistinctTotalSubscribers = total.DistinctTotalSubscribers
		case errors.Is(err, gorm.ErrRecordNotFound):
			// dimension never computed; an empty matrix with a zero total
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read dimension total"))
			return
		}

		for _, row := range cohorts {
			view := cohortView{
				CohortMonth:   row.CohortMonth.Format("2006-01"),
				CohortSize:    row.CohortSize,
				RenewedCounts: []int(row.RenewedCounts),
				Percentages:   make([]string, 0, len(row.RenewedCounts)),
			}
			for offset := range row.RenewedCounts {
				view.Percentages = append(view.Percentages, retention.Percentage(row, offset).StringFixed(2))
			}
			payload.Cohorts = append(payload.Cohorts, view)
		}

		responses.WriteSuccess(w, payload)
	}
}
