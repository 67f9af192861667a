package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matiasvr/folioscope-analytics/api/controllers"
	"github.com/matiasvr/folioscope-analytics/api/middleware"
	"github.com/matiasvr/folioscope-analytics/internal/journeys"
	"github.com/matiasvr/folioscope-analytics/internal/profiles"
	"github.com/matiasvr/folioscope-analytics/internal/retention"
	"github.com/matiasvr/folioscope-analytics/pkg/config"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

// RouterParams carry everything the read-only reporting API serves from.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	Pingers   map[string]controllers.Pinger
	Patterns  journeys.PatternRepository
	Retention retention.RowRepository
	Totals    retention.TotalsRepository
	Profiles  profiles.Repository
	Registry  *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(params.Config))
		r.Get("/ready", controllers.HealthReady(params.Config, params.Logger, params.Pingers))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/patterns", controllers.ListPatterns(params.Patterns, params.Logger))
		r.Get("/retention", controllers.GetRetention(params.Retention, params.Totals, params.Logger))
		r.Get("/profiles/{userID}", controllers.GetProfile(params.Profiles, params.Logger))
	})

	return r
}
