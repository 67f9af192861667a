package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matiasvr/folioscope-analytics/pkg/db/models"
)

type stubProfileFinder struct {
	profile *models.UserProfile
	err     error
}

func (s *stubProfileFinder) FindByUserID(context.Context, uuid.UUID) (*models.UserProfile, error) {
	return s.profile, s.err
}

func profileRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/"+userID, nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("userID", userID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestGetProfileFound(t *testing.T) {
	userID := uuid.New()
	finder := &stubProfileFinder{profile: &models.UserProfile{UserID: userID, ViewCount7d: 12, HasLinkedFunding: true}}

	rec := httptest.NewRecorder()
	GetProfile(finder, controllerTestLogger()).ServeHTTP(rec, profileRequest(userID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetProfileInvalidID(t *testing.T) {
	rec := httptest.NewRecorder()
	GetProfile(&stubProfileFinder{}, controllerTestLogger()).ServeHTTP(rec, profileRequest("not-a-uuid"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	finder := &stubProfileFinder{err: gorm.ErrRecordNotFound}

	rec := httptest.NewRecorder()
	GetProfile(finder, controllerTestLogger()).ServeHTTP(rec, profileRequest(uuid.NewString()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
