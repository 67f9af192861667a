package controllers

import (
	"context"
	"net/http"

	"github.com/matiasvr/folioscope-analytics/api/responses"
	"github.com/matiasvr/folioscope-analytics/pkg/config"
	pkgerrors "github.com/matiasvr/folioscope-analytics/pkg/errors"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Folioscope-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every provided dependency; nil pingers are skipped so
// optional backends (BigQuery) do not fail readiness when disabled.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Folioscope-Env", cfg.App.Env)
		ctx := r.Context()

		for name, pinger := range pingers {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unreachable").
					WithDetails(map[string]string{"dependency": name})
				responses.WriteError(ctx, logg, w, wrapped)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
