package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/internal/journeys"
	"github.com/matiasvr/folioscope-analytics/internal/profiles"
	"github.com/matiasvr/folioscope-analytics/internal/retention"
	"github.com/matiasvr/folioscope-analytics/pkg/config"
	"github.com/matiasvr/folioscope-analytics/pkg/logger"
)

func setupRouterDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE path_patterns (
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
		)`,
		`CREATE TABLE retention_rows (
			id TEXT PRIMARY KEY,
			dimension_id TEXT NOT NULL DEFAULT '',
			cohort_month DATETIME NOT NULL,
			cohort_size INTEGER NOT NULL,
			renewed_counts TEXT,
			computed_at DATETIME NOT NULL,
			created_at DATETIME
		)`,
		`CREATE TABLE dimension_totals (
			id TEXT PRIMARY KEY,
			dimension_id TEXT NOT NULL DEFAULT '' UNIQUE,
			distinct_total_subscribers INTEGER NOT NULL,
			computed_at DATETIME NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE user_profiles (
			user_id TEXT PRIMARY KEY,
			view_count_7d INTEGER NOT NULL DEFAULT 0,
			tap_count_7d INTEGER NOT NULL DEFAULT 0,
			premium_view_count_7d INTEGER NOT NULL DEFAULT 0,
			copy_count_total INTEGER NOT NULL DEFAULT 0,
			subscribe_count_total INTEGER NOT NULL DEFAULT 0,
			session_count_total INTEGER NOT NULL DEFAULT 0,
			has_linked_funding BOOLEAN NOT NULL DEFAULT FALSE,
			has_copied_portfolio BOOLEAN NOT NULL DEFAULT FALSE,
			first_seen_at DATETIME NOT NULL,
			last_event_at DATETIME NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		for _, table := range []string{"user_profiles", "dimension_totals", "retention_rows", "path_patterns"} {
			_ = db.Exec(`DROP TABLE ` + table).Error
		}
	})

	return db
}

func newTestRouter(t *testing.T, db *gorm.DB) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Config:    &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:    logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard}),
		Patterns:  journeys.NewPatternRepository(db),
		Retention: retention.NewRowRepository(db),
		Totals:    retention.NewTotalsRepository(db),
		Profiles:  profiles.NewRepository(db),
	})
}

func TestRouterServesReportingEndpoints(t *testing.T) {
	db := setupRouterDB(t)
	router := newTestRouter(t, db)

	for _, path := range []string{
		"/health/live",
		"/v1/patterns?dimension=creator-1",
		"/v1/retention?dimension=creator-1",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestRouterUnknownProfileIs404(t *testing.T) {
	db := setupRouterDB(t)
	router := newTestRouter(t, db)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/profiles/8d7d2c5e-3a1f-4f6e-9a6d-111111111111", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterSetsRequestID(t *testing.T) {
	db := setupRouterDB(t)
	router := newTestRouter(t, db)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
