package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/matiasvr/folioscope-analytics/api/responses"
	"github.com/matiasvr/folioscope-analytics/internal/journeys"
	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
	"github.com/matiasvr/folioscope-analytics/pkg/enums"
	pkgerrors "github.com/matiasvr/folioscope-analytics/pkg/errors"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

type patternLister interface {
	ListByDimension(ctx context.Context, dimensionID string) ([]models.PathPattern, error)
}

type patternView struct {
	AnalysisType string   `json:"analysis_type"`
	Items        []string `json:"items"`
	UserCount    int      `json:"user_count"`
	Percentage   string   `json:"percentage"`
	Rank         int      `json:"rank"`
}

type patternsResponse struct {
	Dimension       string        `json:"dimension"`
	TotalConverters int           `json:"total_converters"`
	Patterns        []patternView `json:"patterns"`
}

// ListPatterns serves the latest mined conversion paths for one dimension.
// The empty dimension is the cross-creator aggregate.
func ListPatterns(repo patternLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dimension := strings.TrimSpace(r.URL.Query().Get("dimension"))

		patterns, err := repo.ListByDimension(ctx, dimension)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list patterns"))
			return
		}
		journeys.SortForDisplay(patterns)

		payload := patternsResponse{
			Dimension: dimension,
			Patterns:  make([]patternView, 0, len(patterns)),
		}
		for _, pattern := range patterns {
			// entry-point rows carry the full converter denominator
			if pattern.AnalysisType == enums.AnalysisEntryPoint {
				payload.TotalConverters = pattern.TotalUsers
			}
			payload.Patterns = append(payload.Patterns, patternView{
				AnalysisType: string(pattern.AnalysisType),
				Items:        []string(pattern.Items),
				UserCount:    pattern.UserCount,
				Percentage:   pattern.Percentage.StringFixed(2),
				Rank:         pattern.Rank,
			})
		}

		responses.WriteSuccess(w, payload)
	}
}
